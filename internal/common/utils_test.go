package common

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("DEBUG"); err != nil || Log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("debug: %v %v", err, Log.GetLevel())
	}
	if err := SetLogLevel("warn"); err != nil || Log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("warn: %v %v", err, Log.GetLevel())
	}
	if err := SetLogLevel("loud"); err == nil || Log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("unknown level should fall back to info: %v %v", err, Log.GetLevel())
	}
}

func TestClampInt(t *testing.T) {
	if ClampInt(1, 3, 50) != 3 || ClampInt(99, 3, 50) != 50 || ClampInt(10, 3, 50) != 10 {
		t.Fatal("ClampInt out of bounds")
	}
}

func TestStringHelpers(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Fatalf("FirstNonEmpty = %q", got)
	}
	if got := JoinNonEmpty(", ", "Austin", "", " Texas ", "United States"); got != "Austin, Texas, United States" {
		t.Fatalf("JoinNonEmpty = %q", got)
	}
}
