package expr

import "testing"

func TestDefaultEval(t *testing.T) {
	e := NewDefault()

	cases := []struct {
		name   string
		source string
		vars   map[string]any
		want   bool
	}{
		{"true literal", "true", nil, true},
		{"false literal", "false", nil, false},
		{"var comparison true", "amount > 10", map[string]any{"amount": 42}, true},
		{"var comparison false", "amount > 10", map[string]any{"amount": 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Eval("", tc.source, tc.vars)
			if err != nil {
				t.Fatalf("Eval returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Eval(%q) = %v, want %v", tc.source, got, tc.want)
			}
		})
	}
}

func TestDefaultEvalUnsupportedLanguage(t *testing.T) {
	e := NewDefault()
	if _, err := e.Eval("xpath", "1=1", nil); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestDefaultEvalBadExpression(t *testing.T) {
	e := NewDefault()
	if _, err := e.Eval("", "this is not valid expr syntax &&&", nil); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestDefaultEvalNonBoolResult(t *testing.T) {
	e := NewDefault()
	if _, err := e.Eval("", "1 + 1", nil); err == nil {
		t.Fatal("expected error for non-bool result")
	}
}
