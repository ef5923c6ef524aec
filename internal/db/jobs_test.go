package db

import (
	"testing"

	"github.com/bobarin/reelsmith/internal/models"
)

func TestRequestJSONB(t *testing.T) {
	words := models.FlexInt(3)
	j, err := RequestJSONB(models.RenderRequest{Text: "hello", Style: "style_2", NoOfWords: &words})
	if err != nil {
		t.Fatalf("RequestJSONB: %v", err)
	}
	if j["text"] != "hello" || j["style"] != "style_2" {
		t.Errorf("unexpected payload: %v", j)
	}
	if j["noOfWords"] != float64(3) {
		t.Errorf("expected noOfWords 3, got %v", j["noOfWords"])
	}
	if _, ok := j["colorBg"]; ok {
		t.Errorf("empty fields must be omitted")
	}

	v, err := j.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var back models.JSONB
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if back["text"] != "hello" {
		t.Errorf("round trip lost text: %v", back)
	}
}

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Errorf("empty string must be NULL")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("unexpected %+v", ns)
	}
}
