package conversations

import "testing"

func TestAdvanceStageForwardOnly(t *testing.T) {
	c := &Conversation{Stage: StageInitial}

	if !c.AdvanceStage(StageEmailCaptured) {
		t.Fatal("forward transition must succeed")
	}
	if c.AdvanceStage(StageInitial) {
		t.Fatal("backward transition must be ignored")
	}
	if c.Stage != StageEmailCaptured {
		t.Fatalf("stage: got %s", c.Stage)
	}

	if !c.AdvanceStage(StageCompleted) {
		t.Fatal("skipping forward is allowed")
	}
	if c.AdvanceStage(StageQuoteSent) {
		t.Fatal("completed is terminal")
	}
}

func TestCaptureEmailMonotonic(t *testing.T) {
	c := &Conversation{Stage: StageInitial}

	if !c.CaptureEmail("first@example.com") {
		t.Fatal("first capture must succeed")
	}
	if c.Stage != StageEmailCaptured {
		t.Fatalf("capture must advance stage, got %s", c.Stage)
	}
	if c.CaptureEmail("second@example.com") {
		t.Fatal("a later email must not overwrite the captured one")
	}
	if c.Email != "first@example.com" {
		t.Fatalf("email: got %s", c.Email)
	}
	if c.CaptureEmail("") {
		t.Fatal("empty email is not a capture")
	}
}

func TestCaptureEmailDoesNotRegressLaterStages(t *testing.T) {
	c := &Conversation{Stage: StageQuoteSent}
	c.CaptureEmail("late@example.com")
	if c.Stage != StageQuoteSent {
		t.Fatalf("stage must not change, got %s", c.Stage)
	}
}

func TestCaptureVehicleFillsGapsOnly(t *testing.T) {
	c := &Conversation{Vehicle: Vehicle{Make: "Ford"}}

	changed := c.CaptureVehicle(Vehicle{Year: "2021", Make: "Chevy", Model: "F-150"})
	if !changed {
		t.Fatal("expected change")
	}
	if c.Vehicle.Make != "Ford" {
		t.Fatalf("existing make must win, got %s", c.Vehicle.Make)
	}
	if c.Vehicle.Year != "2021" || c.Vehicle.Model != "F-150" {
		t.Fatalf("gaps must fill, got %+v", c.Vehicle)
	}

	if c.CaptureVehicle(Vehicle{Year: "1999"}) {
		t.Fatal("no change expected once all fields are set")
	}
}

func TestReadyForQuote(t *testing.T) {
	c := &Conversation{
		Email:   "sam@example.com",
		Vehicle: Vehicle{Year: "2021", Make: "Ford", Model: "F-150"},
	}
	if !c.ReadyForQuote() {
		t.Fatal("expected ready")
	}

	c.Vehicle.Year = ""
	if c.ReadyForQuote() {
		t.Fatal("incomplete vehicle is not ready")
	}
}

func TestHasEscalation(t *testing.T) {
	c := &Conversation{EscalationsSent: []string{"complaint"}}
	if !c.HasEscalation("complaint") {
		t.Fatal("expected true for sent tag")
	}
	if c.HasEscalation("bulk_order") {
		t.Fatal("expected false for unsent tag")
	}
}
