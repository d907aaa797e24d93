package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/validate"
	"github.com/shopspring/decimal"
)

type registerInput struct {
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,max=80"`
	Role      string `json:"role"      validate:"nullable,in=user|admin"`
	WhatsApp  string `json:"whatsapp"  validate:"nullable,phone"`
}

type productInput struct {
	Price *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Stock *int             `json:"stock" validate:"required,gte=0"`
	Title *string          `json:"title" validate:"nullable,min=1"`
}

func TestValidRegister(t *testing.T) {
	errs := validate.Struct(registerInput{
		Email:     "ana@tienda.com",
		Password:  "secret",
		FirstName: "Ana",
		Role:      "admin",
		WhatsApp:  "+54 9 11 5555-1234",
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(registerInput{})
	for _, field := range []string{"email", "password", "firstName"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected %s to be required", field)
		}
	}
	if _, ok := errs["role"]; ok {
		t.Error("nullable role must not be reported")
	}
}

func TestEmailRule(t *testing.T) {
	cases := map[string]bool{
		"ana@tienda.com":  true,
		"a@b.c":           true,
		"not-an-email":    false,
		"ana @tienda.com": false,
		"ana@tienda":      false,
	}
	for email, ok := range cases {
		msg := validate.Var("email", email, "required,email")
		if ok && msg != "" {
			t.Errorf("%q: unexpected error %q", email, msg)
		}
		if !ok && msg == "" {
			t.Errorf("%q: expected an error", email)
		}
	}
}

func TestPasswordMinLength(t *testing.T) {
	errs := validate.Struct(registerInput{Email: "a@b.co", Password: "12345", FirstName: "A"})
	if got := errs["password"]; got != "The password field must be at least 6 characters." {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestInRule(t *testing.T) {
	if msg := validate.Var("role", "superadmin", "in=user|admin"); msg == "" {
		t.Error("expected invalid role to fail")
	}
	if msg := validate.Var("role", "user", "in=user|admin"); msg != "" {
		t.Errorf("expected user to pass: %s", msg)
	}
}

func TestPointerRequiredAcceptsZero(t *testing.T) {
	zero := 0
	price := decimal.Zero
	if errs := validate.Struct(productInput{Price: &price, Stock: &zero}); validate.HasErrors(errs) {
		t.Errorf("zero stock and price must be accepted: %v", errs)
	}

	errs := validate.Struct(productInput{})
	if _, ok := errs["stock"]; !ok {
		t.Error("nil stock must be reported as required")
	}
}

func TestNumericBoundsOnPointers(t *testing.T) {
	neg := -1
	price := decimal.RequireFromString("-0.5")
	errs := validate.Struct(productInput{Price: &price, Stock: &neg})
	if _, ok := errs["stock"]; !ok {
		t.Error("expected negative stock to fail")
	}
	if _, ok := errs["price"]; !ok {
		t.Error("expected negative price to fail")
	}
}

func TestNullablePointerSkipsRules(t *testing.T) {
	zero, price := 1, decimal.NewFromInt(3)
	empty := ""
	if errs := validate.Struct(productInput{Price: &price, Stock: &zero, Title: nil}); validate.HasErrors(errs) {
		t.Errorf("nil title must be skipped: %v", errs)
	}
	if errs := validate.Struct(productInput{Price: &price, Stock: &zero, Title: &empty}); validate.HasErrors(errs) {
		t.Errorf("empty title is nullable: %v", errs)
	}
}

func TestPhoneRule(t *testing.T) {
	if msg := validate.Var("whatsapp", "call me", "phone"); msg == "" {
		t.Error("expected letters to fail")
	}
	if msg := validate.Var("whatsapp", "5491155551234", "phone"); msg != "" {
		t.Errorf("expected digits to pass: %s", msg)
	}
}
