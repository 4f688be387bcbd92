package pricing

import "testing"

func testEngine() *Engine {
	return NewEngine(map[string]float64{
		"fordf150":    250,
		"teslamodel3": 210,
	}, 5.27)
}

func TestLookupKnownModel(t *testing.T) {
	got := testEngine().Lookup("Ford", "F-150")
	if got.Blocked {
		t.Fatal("known model must not be blocked")
	}
	if got.Sqft != 250 {
		t.Fatalf("sqft: got %v", got.Sqft)
	}
	if got.Cost != 1318 {
		t.Fatalf("cost: got %d, want 1318", got.Cost)
	}
}

func TestLookupRoundsToNearestDollar(t *testing.T) {
	got := testEngine().Lookup("Tesla", "Model 3")
	// 210 * 5.27 = 1106.7
	if got.Cost != 1107 {
		t.Fatalf("cost: got %d, want 1107", got.Cost)
	}
}

func TestLookupUnknownModelBlocked(t *testing.T) {
	got := testEngine().Lookup("Yugo", "GV")
	if !got.Blocked {
		t.Fatal("unknown model must block, never default")
	}
	if got.Cost != 0 || got.Sqft != 0 {
		t.Fatalf("blocked result must carry no figures, got %+v", got)
	}
}

func TestLookupEmptyVehicleBlocked(t *testing.T) {
	if got := testEngine().Lookup("", ""); !got.Blocked {
		t.Fatal("empty vehicle must block")
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		NormalizeKey("Ford", "F-150"):    "fordf150",
		NormalizeKey("FORD", "f 150"):    "fordf150",
		NormalizeKey("Tesla", "Model 3"): "teslamodel3",
		NormalizeKey("", ""):             "",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestDefaultTableCoversFordF150(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("load embedded table: %v", err)
	}
	if table["fordf150"] != 250 {
		t.Fatalf("embedded table fordf150: got %v, want 250", table["fordf150"])
	}
}
