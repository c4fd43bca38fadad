package model

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseEnums(t *testing.T) {
	if _, err := ParseCategory("dresses"); err != nil {
		t.Errorf("ParseCategory(dresses): %v", err)
	}
	if _, err := ParseCategory("hats"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseCategory(hats) = %v, want validation error", err)
	}
	if _, err := ParseItemType("vintage"); err != nil {
		t.Errorf("ParseItemType(vintage): %v", err)
	}
	if _, err := ParseSize("One Size"); err != nil {
		t.Errorf("ParseSize(One Size): %v", err)
	}
	if _, err := ParseSize("xl"); err == nil {
		t.Error("sizes are case-sensitive")
	}
	if _, err := ParseCondition("like-new"); err != nil {
		t.Errorf("ParseCondition(like-new): %v", err)
	}
	if _, err := ParseItemStatus("lost"); err == nil {
		t.Error("expected error for unknown item status")
	}

	if len(Categories) != 7 || len(ItemTypes) != 6 || len(Sizes) != 7 || len(Conditions) != 5 {
		t.Error("unexpected enum cardinality")
	}
}

func TestValidatePointsValue(t *testing.T) {
	for v, wantErr := range map[int]bool{9: true, 10: false, 250: false, 500: false, 501: true, -1: true} {
		if err := ValidatePointsValue(v); (err != nil) != wantErr {
			t.Errorf("ValidatePointsValue(%d) error = %v, wantErr %v", v, err, wantErr)
		}
	}
}

func TestValidateTitleAndDescription(t *testing.T) {
	if err := ValidateTitle("ab"); err == nil {
		t.Error("expected error for short title")
	}
	if err := ValidateTitle("Denim jacket"); err != nil {
		t.Errorf("ValidateTitle: %v", err)
	}
	if err := ValidateTitle(strings.Repeat("x", 101)); err == nil {
		t.Error("expected error for long title")
	}
	if err := ValidateDescription("too short"); err == nil {
		t.Error("expected error for short description")
	}
	if err := ValidateDescription("Worn twice, no stains."); err != nil {
		t.Errorf("ValidateDescription: %v", err)
	}

	var verr *ValidationError
	if err := ValidateTitle(""); !errors.As(err, &verr) || verr.Field != "title" {
		t.Errorf("expected ValidationError on title, got %v", err)
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags(" denim, blue ,,summer ")
	want := []string{"denim", "blue", "summer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTags = %v, want %v", got, want)
	}
	if got := ParseTags(""); len(got) != 0 {
		t.Errorf("ParseTags(\"\") = %v, want empty", got)
	}
}

func TestSwapStatusTerminal(t *testing.T) {
	if SwapStatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []SwapStatus{SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled, SwapStatusCompleted} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}
