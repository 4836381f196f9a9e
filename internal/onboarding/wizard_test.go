package onboarding

import (
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
)

func TestWizardErrMapsUserAbort(t *testing.T) {
	if got := wizardErr(huh.ErrUserAborted); !errors.Is(got, ErrCancelled) {
		t.Errorf("abort mapped to %v", got)
	}
	boom := errors.New("boom")
	if got := wizardErr(boom); !errors.Is(got, boom) {
		t.Errorf("other errors must pass through, got %v", got)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if !IsFirstRun() {
		t.Fatal("fresh home should read as first run")
	}

	if err := SavePreferences(Preferences{OnboardingComplete: true, DefaultBackend: "claude"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	prefs, err := LoadPreferences()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !prefs.OnboardingComplete || prefs.DefaultBackend != "claude" {
		t.Errorf("prefs = %+v", prefs)
	}
	if IsFirstRun() {
		t.Error("completed onboarding should not read as first run")
	}
}
