package timeparse

import (
	"errors"
	"testing"

	"github.com/starford/anxi/internal/apperr"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "iso compact time", input: "2019-10-15 1800", want: "2019-10-15 18:00"},
		{name: "iso colon time", input: "2019-10-15 18:00", want: "2019-10-15 18:00"},
		{name: "slash compact time", input: "2/12/2019 1800", want: "2019-12-02 18:00"},
		{name: "slash padded", input: "15/10/2019 0930", want: "2019-10-15 09:30"},
		{name: "slash colon time", input: "15/10/2019 09:30", want: "2019-10-15 09:30"},
		{name: "iso date only", input: "2019-10-15", want: "2019-10-15 00:00"},
		{name: "slash date only", input: "1/1/2020", want: "2020-01-01 00:00"},
		{name: "surrounding space", input: "  2019-10-15 1800 ", want: "2019-10-15 18:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.input)
			if err != nil {
				t.Fatalf("ParseDateTime(%q) error = %v", tt.input, err)
			}
			if s := got.Format(SaveDateTimeLayout); s != tt.want {
				t.Errorf("ParseDateTime(%q) = %s, want %s", tt.input, s, tt.want)
			}
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "tomorrow", "2019-13-45 1800", "2019-10-15 2500", "15-10-2019"} {
		_, err := ParseDateTime(input)
		if err == nil {
			t.Errorf("ParseDateTime(%q) expected error", input)
			continue
		}
		if !errors.Is(err, apperr.ErrTimeFormat) {
			t.Errorf("ParseDateTime(%q) error = %v, want ErrTimeFormat", input, err)
		}
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("ParseDateTime(%q) kind = %v", input, apperr.KindOf(err))
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  Clock
	}{
		{"1300", Clock{Hour: 13}},
		{"13:00", Clock{Hour: 13}},
		{"0905", Clock{Hour: 9, Minute: 5}},
		{" 23:59 ", Clock{Hour: 23, Minute: 59}},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.input)
		if err != nil {
			t.Fatalf("ParseTime(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseTime(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestParseTime_Invalid(t *testing.T) {
	for _, input := range []string{"", "noon", "2460", "1:5pm"} {
		if _, err := ParseTime(input); !errors.Is(err, apperr.ErrTimeFormat) {
			t.Errorf("ParseTime(%q) error = %v, want ErrTimeFormat", input, err)
		}
	}
}

func TestClock(t *testing.T) {
	early := Clock{Hour: 9, Minute: 30}
	late := Clock{Hour: 14}

	if !early.Before(late) || late.Before(early) || early.Before(early) {
		t.Error("Before ordering is wrong")
	}
	if early.String() != "09:30" {
		t.Errorf("String = %q", early.String())
	}
	if late.Format(DisplayClockLayout) != "02:00 PM" {
		t.Errorf("Format = %q", late.Format(DisplayClockLayout))
	}

	day, _ := ParseDateTime("2019-10-15 0800")
	if got := late.On(day).Format(SaveDateTimeLayout); got != "2019-10-15 14:00" {
		t.Errorf("On = %s", got)
	}
	if Of(day) != (Clock{Hour: 8}) {
		t.Errorf("Of = %+v", Of(day))
	}
}
