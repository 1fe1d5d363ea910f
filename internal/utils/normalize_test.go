package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVegetable(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with spaces", input: "Bell Pepper", expected: "bell_pepper"},
		{name: "uppercase", input: "TOMATO", expected: "tomato"},
		{name: "with dashes", input: "bell-pepper", expected: "bell_pepper"},
		{name: "double spaces", input: "bell   pepper", expected: "bell_pepper"},
		{name: "already normalized", input: "bell_pepper", expected: "bell_pepper"},
		{name: "with leading/trailing spaces", input: "  onion  ", expected: "onion"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeVegetable(tt.input))
		})
	}
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "mumbai", expected: "Mumbai"},
		{name: "uppercase", input: "DELHI", expected: "Delhi"},
		{name: "padded", input: "  bangalore ", expected: "Bangalore"},
		{name: "two words", input: "new  delhi", expected: "New Delhi"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLocation(tt.input))
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 28.6, Round(28+(40-28)*0.05, 2))
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 0.667, Round(2.0/3.0, 3))
}
