package api

import "testing"

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "unset", value: "", want: 10},
		{name: "valid", value: "5", want: 5},
		{name: "garbage", value: "five", want: 10},
		{name: "zero", value: "0", want: 10},
		{name: "negative", value: "-3", want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_ENV_INT", tt.value)
			}
			if got := envInt("TEST_ENV_INT", 10); got != tt.want {
				t.Fatalf("envInt = %d, want %d", got, tt.want)
			}
		})
	}
}
