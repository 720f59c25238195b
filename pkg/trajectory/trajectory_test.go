package trajectory

import "testing"

func TestParseValidProgram(t *testing.T) {
	prog, err := Parse("move x=100 y=50 z=30 s=80; grip close; delay t=500; move x=200 y=0 z=10 s=50; grip open")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Moves) != 2 {
		t.Fatalf("got %d moves, want 2", len(prog.Moves))
	}
	if prog.Moves[0] != (MoveCommand{X: 100, Y: 50, Z: 30, Speed: 80}) {
		t.Errorf("first move = %+v", prog.Moves[0])
	}
	if prog.Raw != "move x=100 y=50 z=30 s=80; grip close; delay t=500; move x=200 y=0 z=10 s=50; grip open" {
		t.Errorf("Raw not preserved verbatim")
	}
}

func TestParseRejectsUnknownVerb(t *testing.T) {
	if _, err := Parse("jump x=1 y=2 z=3"); err == nil {
		t.Fatal("expected ErrProtocolParse for unknown verb")
	}
}

func TestParseRejectsInvalidGripState(t *testing.T) {
	if _, err := Parse("grip sideways"); err == nil {
		t.Fatal("expected ErrProtocolParse for invalid grip state")
	}
}

func TestParseRejectsSpeedOutOfRange(t *testing.T) {
	if _, err := Parse("move x=1 y=1 z=1 s=150"); err == nil {
		t.Fatal("expected ErrProtocolParse for out-of-range speed")
	}
}

func TestParseRejectsMissingField(t *testing.T) {
	if _, err := Parse("move x=1 y=1 s=50"); err == nil {
		t.Fatal("expected ErrProtocolParse for missing z")
	}
}

func TestExtractPickPlace(t *testing.T) {
	prog, err := Parse("move x=100 y=50 z=90 s=80; move x=150 y=60 z=70 s=50; move x=200 y=0 z=20 s=50")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pp, ok := prog.ExtractPickPlace()
	if !ok {
		t.Fatal("expected ok=true with 3 moves")
	}
	if pp.Pick != (Point2{X: 100, Y: 50}) || pp.Place != (Point2{X: 200, Y: 0}) {
		t.Errorf("pick/place = %+v/%+v", pp.Pick, pp.Place)
	}
	if pp.ZPick != 90 || pp.ZPlace != 20 {
		t.Errorf("zpick/zplace = %v/%v", pp.ZPick, pp.ZPlace)
	}
}

func TestExtractPickPlaceRequiresTwoMoves(t *testing.T) {
	prog, err := Parse("move x=1 y=1 z=1 s=1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := prog.ExtractPickPlace(); ok {
		t.Fatal("expected ok=false with a single move")
	}
}

func TestApproachZOffset(t *testing.T) {
	if got := ApproachZOffset(43.0, 50.0); got != 93.0 {
		t.Errorf("ApproachZOffset = %v, want 93.0", got)
	}
}
