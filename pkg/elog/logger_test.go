package elog

import "testing"

func TestDiscardIsNilSafeAndSilent(t *testing.T) {
	Discard.Debugf("x")
	Discard.Infof("x")
	Discard.Warnf("x")
	Discard.Errorf("x")
	if Discard.IsDebugEnabled() {
		t.Fatal("discard logger should never report debug enabled")
	}
}

func TestCLIDebugfRespectsDebugFlag(t *testing.T) {
	quiet := NewCLI(false, true)
	if quiet.IsDebugEnabled() {
		t.Fatal("expected debug disabled")
	}
	quiet.Debugf("should not panic even though suppressed")

	verbose := NewCLI(true, true)
	if !verbose.IsDebugEnabled() {
		t.Fatal("expected debug enabled")
	}
}

func TestCLILogsAtEachLevelWithoutPanicking(t *testing.T) {
	c := NewCLI(true, true)
	c.Infof("hello %s", "world")
	c.Warnf("careful")
	c.Errorf("broken")
}
