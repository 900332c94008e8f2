package domain

import (
	"testing"
	"time"
)

func TestValidNumber(t *testing.T) {
	valid := []string{"00", "07", "42", "99"}
	for _, n := range valid {
		if !ValidNumber(n) {
			t.Errorf("expected %q to be valid", n)
		}
	}

	invalid := []string{"", "7", "100", "4a", "a4", "-1", " 42"}
	for _, n := range invalid {
		if ValidNumber(n) {
			t.Errorf("expected %q to be invalid", n)
		}
	}
}

func TestValidSlotAndMode(t *testing.T) {
	for _, s := range Slots {
		if !ValidSlot(s) {
			t.Errorf("expected slot %q to be valid", s)
		}
	}
	if ValidSlot("MADRUGADA") {
		t.Error("unknown slot accepted")
	}
	if !ValidMode(ModeTiempos) || !ValidMode(ModeReventados) {
		t.Error("known modes rejected")
	}
	if ValidMode("PARLAY") {
		t.Error("unknown mode accepted")
	}
}

func TestSlotOpenAt(t *testing.T) {
	loc := Timezone()

	cases := []struct {
		slot string
		at   time.Time
		open bool
	}{
		{SlotMediodia, time.Date(2025, 3, 10, 12, 54, 59, 0, loc), true},
		{SlotMediodia, time.Date(2025, 3, 10, 12, 55, 0, 0, loc), false},
		{SlotTarde, time.Date(2025, 3, 10, 16, 29, 0, 0, loc), true},
		{SlotTarde, time.Date(2025, 3, 10, 16, 30, 0, 0, loc), false},
		{SlotNoche, time.Date(2025, 3, 10, 19, 29, 59, 0, loc), true},
		{SlotNoche, time.Date(2025, 3, 10, 19, 30, 0, 0, loc), false},
		{SlotNoche, time.Date(2025, 3, 10, 23, 0, 0, 0, loc), false},
	}
	for _, c := range cases {
		if got := SlotOpenAt(c.slot, c.at); got != c.open {
			t.Errorf("SlotOpenAt(%s, %s) = %v, want %v", c.slot, c.at, got, c.open)
		}
	}

	if SlotOpenAt("NOPE", time.Now()) {
		t.Error("unknown slot reported open")
	}
}

func TestSlotOpenAtConvertsTimezone(t *testing.T) {
	// 18:54 UTC = 12:54 hora de Costa Rica, un minuto antes del corte
	utc := time.Date(2025, 3, 10, 18, 54, 0, 0, time.UTC)
	if !SlotOpenAt(SlotMediodia, utc) {
		t.Error("expected mediodía open at 12:54 local expressed in UTC")
	}
	if SlotOpenAt(SlotMediodia, utc.Add(time.Minute)) {
		t.Error("expected mediodía closed at 12:55 local expressed in UTC")
	}
}

func TestDrawDate(t *testing.T) {
	loc := Timezone()
	// 01:30 UTC del día 11 todavía es día 10 en Costa Rica
	utc := time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC)
	if got := DrawDate(utc); got != "2025-03-10" {
		t.Errorf("DrawDate = %s, want 2025-03-10", got)
	}
	local := time.Date(2025, 3, 10, 20, 0, 0, 0, loc)
	if got := DrawDate(local); got != "2025-03-10" {
		t.Errorf("DrawDate = %s, want 2025-03-10", got)
	}
}

func TestCronSpec(t *testing.T) {
	cases := map[string]string{
		SlotMediodia: "55 12 * * *",
		SlotTarde:    "30 16 * * *",
		SlotNoche:    "30 19 * * *",
	}
	for slot, want := range cases {
		if got := CronSpec(slot); got != want {
			t.Errorf("CronSpec(%s) = %q, want %q", slot, got, want)
		}
	}
}
