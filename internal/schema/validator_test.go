package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return v
}

// TestValidateLogin tests the auth.login schema.
func TestValidateLogin(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"username":"emilys","password":"emilyspass"}`, false},
		{"empty username", `{"username":"","password":"x"}`, true},
		{"missing password", `{"username":"emilys"}`, true},
		{"wrong type", `{"username":1,"password":"x"}`, true},
		{"not an object", `"emilys"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate("auth.login", json.RawMessage(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateErrorMessage tests that the message names the offending field.
func TestValidateErrorMessage(t *testing.T) {
	v := newValidator(t)
	_, err := v.Validate("products.getById", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("Validate() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "id") {
		t.Errorf("Validate() error = %q, want it to mention id", err)
	}
}

// TestValidatePassesInputThrough tests that inputs without defaults come back unchanged.
func TestValidatePassesInputThrough(t *testing.T) {
	v := newValidator(t)
	in := json.RawMessage(`{"skip":12,"limit":12,"search":"phone"}`)
	out, err := v.Validate("products.list", in)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if string(out) != string(in) {
		t.Errorf("Validate() = %s, want %s", out, in)
	}
}

// TestValidateAppliesDefaults tests that products.add fills discountPercentage and rating.
func TestValidateAppliesDefaults(t *testing.T) {
	v := newValidator(t)
	in := `{"title":"Lamp","description":"Desk lamp","price":19.5,"stock":3,"brand":"Acme",
		"category":"home-decoration","thumbnail":"t.png","images":["a.png"],"rating":4.5}`

	out, err := v.Validate("products.add", json.RawMessage(in))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["discountPercentage"] != float64(0) {
		t.Errorf("discountPercentage = %v, want 0", got["discountPercentage"])
	}
	if got["rating"] != 4.5 {
		t.Errorf("rating = %v, want caller value 4.5", got["rating"])
	}
	if got["price"] != 19.5 {
		t.Errorf("price = %v, want 19.5", got["price"])
	}
}

// TestValidateUpdate tests the nested data object of products.update.
func TestValidateUpdate(t *testing.T) {
	v := newValidator(t)
	if _, err := v.Validate("products.update", json.RawMessage(`{"id":1,"data":{"title":"New"}}`)); err != nil {
		t.Errorf("Validate(valid update) error = %v", err)
	}
	if _, err := v.Validate("products.update", json.RawMessage(`{"id":1,"data":{"price":"cheap"}}`)); err == nil {
		t.Error("Validate(bad price) error = nil, want error")
	}
	if _, err := v.Validate("products.update", json.RawMessage(`{"id":1}`)); err == nil {
		t.Error("Validate(missing data) error = nil, want error")
	}
}

// TestHas tests schema presence reporting.
func TestHas(t *testing.T) {
	v := newValidator(t)
	if !v.Has("auth.me") {
		t.Error("Has(auth.me) = false, want true")
	}
	if v.Has("categories.list") {
		t.Error("Has(categories.list) = true, want false")
	}
	if _, err := v.Validate("categories.list", json.RawMessage(`{}`)); err == nil {
		t.Error("Validate(categories.list) error = nil, want schema not found")
	}
}
