package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"919876543210", "9876543210"},
		{"9876543210", "9876543210"},
		{"+91 98765-43210", "9876543210"},
		{"15551234567", "5551234567"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PartitionKey(tt.in))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "ten digits get country code", in: "9876543210", want: "919876543210"},
		{name: "already international", in: "919876543210", want: "919876543210"},
		{name: "formatting stripped", in: "+91 (987) 654-3210", want: "919876543210"},
		{name: "too short", in: "12345", wantErr: true},
		{name: "twelve digits wrong prefix", in: "449876543210", wantErr: true},
		{name: "eleven digits", in: "09876543210", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in, "91")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_DefaultCountryCode(t *testing.T) {
	got, err := NormalizePhone("9876543210", "")
	assert.NoError(t, err)
	assert.Equal(t, "919876543210", got)
}
