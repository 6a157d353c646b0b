package service

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"пустая строка", "", []string{}},
		{"нижний регистр", "Hello WORLD", []string{"hello", "world"}},
		{"пунктуация как разделитель", "hi, there! ok?", []string{"hi", "there", "ok"}},
		{"однобуквенные слова отбрасываются", "a я b ок", []string{"ок"}},
		{"цифры сохраняются", "room 42", []string{"room", "42"}},
		{"кириллица", "Привет, мир", []string{"привет", "мир"}},
		{"только пунктуация", "?!...", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
