package domain_test

import (
	"math"
	"testing"

	"niblet/internal/domain"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestConvertWeight(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
	}{
		{"kg to lb", 100.0, "kg", "lb", 220.46226218},
		{"lb to kg", 220.46226218, "lb", "kg", 100.0},
		{"same unit kg", 80.0, "kg", "kg", 80.0},
		{"same unit lb", 180.0, "lb", "lb", 180.0},
		{"unknown units", 50.0, "st", "kg", 50.0},
		{"zero value", 0, "kg", "lb", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ConvertWeight(tc.value, tc.from, tc.to)
			if !almostEqual(got, tc.want, 0.001) {
				t.Errorf("ConvertWeight(%v, %q, %q) = %v; want %v",
					tc.value, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestKgToPounds(t *testing.T) {
	tests := []struct {
		kg   float64
		want float64
	}{
		{82, 180.8},
		{100, 220.5},
		{0, 0},
		{70.5, 155.4},
	}
	for _, tc := range tests {
		if got := domain.KgToPounds(tc.kg); got != tc.want {
			t.Errorf("KgToPounds(%v) = %v; want %v", tc.kg, got, tc.want)
		}
	}
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "lb", true},
		{"lbs", "lb", true},
		{"Pounds", "lb", true},
		{"KG", "kg", true},
		{"kilograms", "kg", true},
		{"stone", "", false},
	}
	for _, tc := range tests {
		got, ok := domain.NormalizeUnit(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeUnit(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
