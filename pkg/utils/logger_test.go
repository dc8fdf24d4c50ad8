package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if err := InitLogger("chatty", "json", "stdout", ""); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := newFormatter("text").(*logrus.TextFormatter); !ok {
		t.Error("text format must produce a TextFormatter")
	}
	if _, ok := newFormatter("json").(*logrus.JSONFormatter); !ok {
		t.Error("json format must produce a JSONFormatter")
	}
	if _, ok := newFormatter("").(*logrus.JSONFormatter); !ok {
		t.Error("unknown format must default to JSON")
	}
}
