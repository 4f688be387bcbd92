package extract

import "testing"

func newExtractor() *Extractor {
	return New(DefaultConfig())
}

func TestExtractFullVehicleThroughPunctuation(t *testing.T) {
	e := newExtractor()

	got := e.Extract("I've got a Tesla, Model 3 (2022), what would a wrap run me?")
	if got.Vehicle.Year != "2022" {
		t.Fatalf("year: got %q", got.Vehicle.Year)
	}
	if got.Vehicle.Make != "Tesla" {
		t.Fatalf("make: got %q", got.Vehicle.Make)
	}
	if got.Vehicle.Model != "Model 3" {
		t.Fatalf("model: got %q", got.Vehicle.Model)
	}
}

func TestExtractHyphenatedModel(t *testing.T) {
	e := newExtractor()

	got := e.Extract("How much to wrap my 2021 Ford F-150?")
	if got.Vehicle.Make != "Ford" || got.Vehicle.Model != "F-150" || got.Vehicle.Year != "2021" {
		t.Fatalf("unexpected vehicle %+v", got.Vehicle)
	}
	if !got.Intents.Pricing {
		t.Fatal("expected pricing intent")
	}
}

func TestExtractPartialVehicle(t *testing.T) {
	e := newExtractor()

	got := e.Extract("I drive a Honda")
	if got.Vehicle.Make != "Honda" {
		t.Fatalf("make: got %q", got.Vehicle.Make)
	}
	if got.Vehicle.Model != "" || got.Vehicle.Year != "" {
		t.Fatalf("expected partial detection, got %+v", got.Vehicle)
	}
	if got.Vehicle.IsComplete() {
		t.Fatal("partial vehicle must not report complete")
	}

	yearOnly := e.Extract("it's a 2019, not sure of the trim")
	if yearOnly.Vehicle.Year != "2019" || yearOnly.Vehicle.Make != "" {
		t.Fatalf("expected year-only detection, got %+v", yearOnly.Vehicle)
	}
}

func TestExtractLeftmostMakeWins(t *testing.T) {
	e := newExtractor()

	got := e.Extract("thinking of trading my Ford for a Chevy before wrapping")
	if got.Vehicle.Make != "Ford" {
		t.Fatalf("leftmost make must win, got %q", got.Vehicle.Make)
	}
}

func TestExtractMakeCanonicalCasing(t *testing.T) {
	e := newExtractor()

	got := e.Extract("my TESLA model y needs a wrap")
	if got.Vehicle.Make != "Tesla" {
		t.Fatalf("expected canonical casing, got %q", got.Vehicle.Make)
	}
}

func TestExtractEmailAndPhone(t *testing.T) {
	e := newExtractor()

	got := e.Extract("reach me at joe.smith+quotes@gmail.com or (555) 123-4567")
	if got.Email != "joe.smith+quotes@gmail.com" {
		t.Fatalf("email: got %q", got.Email)
	}
	if got.Phone == "" {
		t.Fatal("expected phone detected")
	}
}

func TestExtractOrderNumberPrefixTolerant(t *testing.T) {
	e := newExtractor()

	cases := map[string]string{
		"order 48213 status please":        "48213",
		"ord# a-48213":                     "A-48213",
		"where is my order number WD-9912": "WD-9912",
		"checking on #12345":               "12345",
	}
	for text, want := range cases {
		if got := e.Extract(text).OrderNumber; got != want {
			t.Fatalf("%q: got %q, want %q", text, got, want)
		}
	}
}

func TestExtractIntentsCoFire(t *testing.T) {
	e := newExtractor()

	got := e.Extract("how much to wrap our whole fleet of vans?")
	if !got.Intents.Pricing || !got.Intents.Bulk {
		t.Fatalf("expected pricing and bulk to co-fire, got %+v", got.Intents)
	}

	quiet := e.Extract("hello there")
	if quiet.Intents.Any() {
		t.Fatalf("expected no intents, got %+v", quiet.Intents)
	}
}
