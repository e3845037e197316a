package domain

import "testing"

func TestIntentJSONRoundTrip(t *testing.T) {
	cases := []Intent{IntentBuy, IntentSupport, IntentSpam, IntentJob, IntentOther}
	for _, want := range cases {
		data, err := want.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%q): %v", want, err)
		}
		var got Intent
		if err := got.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON(%q): %v", data, err)
		}
		if got != want {
			t.Errorf("round trip: got %q, want %q", got, want)
		}
	}
}

func TestIntentUnmarshalRejectsUnknown(t *testing.T) {
	var i Intent
	if err := i.UnmarshalJSON([]byte(`"bogus"`)); err == nil {
		t.Error("expected error for unknown intent, got nil")
	}
}

func TestPriorityJSONRoundTrip(t *testing.T) {
	for _, want := range []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3} {
		data, err := want.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%q): %v", want, err)
		}
		var got Priority
		if err := got.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON(%q): %v", data, err)
		}
		if got != want {
			t.Errorf("round trip: got %q, want %q", got, want)
		}
	}
}

func TestNextActionJSONRoundTrip(t *testing.T) {
	for _, want := range []NextAction{NextActionCall, NextActionEmail, NextActionIgnore, NextActionQualify} {
		data, err := want.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%q): %v", want, err)
		}
		var got NextAction
		if err := got.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON(%q): %v", data, err)
		}
		if got != want {
			t.Errorf("round trip: got %q, want %q", got, want)
		}
	}
}
