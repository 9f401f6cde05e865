package riskgate

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecideTable(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	tests := []struct {
		name            string
		rsi, adx        float64
		wantAdmit       bool
		wantCooldown    bool
		wantReasonEmpty bool
	}{
		{"strong trend", 55, 31, false, true, false},
		{"extreme rsi under trending market low", 20, 28, false, true, false},
		{"extreme rsi under trending market high", 80, 28, false, true, false},
		{"trending but rsi neutral admits cautiously", 50, 28, true, false, true},
		{"rsi out of band low", 20, 10, false, true, false},
		{"rsi out of band high", 85, 10, false, true, false},
		{"normal regime", 50, 10, true, false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := decide(tt.rsi, tt.adx, cfg)
			if got.Admit != tt.wantAdmit {
				t.Errorf("Admit = %v, want %v", got.Admit, tt.wantAdmit)
			}
			if got.TriggerCooldown != tt.wantCooldown {
				t.Errorf("TriggerCooldown = %v, want %v", got.TriggerCooldown, tt.wantCooldown)
			}
			if tt.wantReasonEmpty && got.Reason != "" {
				t.Errorf("Reason = %q, want empty", got.Reason)
			}
			if !tt.wantReasonEmpty && got.Reason == "" {
				t.Error("expected non-empty Reason")
			}
		})
	}
}

func TestDecideBoundaryADXExactly30IsNotStrongTrend(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	got := decide(55, 30.0, cfg)
	if !got.Admit {
		t.Error("ADX == 30.0 exactly must not trigger strong-trend deny (strict > 30)")
	}
}

func TestDecideBoundaryADXExactly25IsNotTrending(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	// At ADX == 25.0 exactly, the "trending" branches (strict > 25) do not
	// apply, so this falls through to the ADX<=25 RSI-band check.
	got := decide(50, 25.0, cfg)
	if !got.Admit {
		t.Error("ADX == 25.0 exactly with neutral RSI should admit")
	}
}

func TestEvaluateEntersAndExitsCooldown(t *testing.T) {
	t.Parallel()

	g := New(DefaultConfig(), testLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d := g.Evaluate(55, 31, now)
	if d.Admit {
		t.Fatal("expected deny on strong trend")
	}
	rec := g.CooldownRecord()
	if !rec.Active {
		t.Fatal("expected cooldown to be active")
	}

	// Mid-cooldown, unconditional deny regardless of indicator values.
	mid := now.Add(5 * time.Minute)
	d = g.Evaluate(50, 10, mid)
	if d.Admit {
		t.Error("expected deny while cooldown is active, even with normal indicators")
	}

	// At or after exit_at, the gate re-evaluates.
	after := now.Add(15 * time.Minute)
	d = g.Evaluate(50, 10, after)
	if !d.Admit {
		t.Error("expected admit once cooldown has expired and indicators are normal")
	}
	if g.CooldownRecord().Active {
		t.Error("cooldown should be cleared after expiry")
	}
}

func TestEvaluateCooldownDurationIs15Minutes(t *testing.T) {
	t.Parallel()

	g := New(DefaultConfig(), testLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.Evaluate(55, 31, now)

	rec := g.CooldownRecord()
	if got := rec.ExitAt.Sub(rec.EnterAt); got != 15*time.Minute {
		t.Errorf("cooldown duration = %v, want 15m", got)
	}
}
