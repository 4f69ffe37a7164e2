// pkg/logger/logger_test.go
package logger

import (
	"context"
	"testing"
)

// Проверяем defaults и валидацию уровня.
func TestNew_LevelValidation(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaultLevel", Config{}, false},
		{"debug", Config{Level: "debug"}, false},
		{"devMode", Config{Level: "info", DevMode: true}, false},
		{"garbage", Config{Level: "loud"}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.cfg)
			if (err != nil) != c.wantErr {
				t.Errorf("New(%+v) error = %v; wantErr %v", c.cfg, err, c.wantErr)
			}
		})
	}
}

func TestWithContext_NoFields(t *testing.T) {
	log := Nop()
	if got := log.WithContext(context.Background()); got != log {
		t.Errorf("WithContext без полей должен вернуть тот же логгер")
	}
}

func TestWithContext_ConnID(t *testing.T) {
	log := Nop()
	ctx := ContextWithConnID(context.Background(), "abc")
	if got := log.WithContext(ctx); got == log {
		t.Errorf("WithContext с conn_id должен вернуть новый логгер")
	}
}
