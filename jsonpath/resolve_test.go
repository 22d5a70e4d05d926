package jsonpath

import (
	"errors"
	"testing"
)

const jobDoc = `{
  "status": {"msg": "OK"},
  "data": {
    "Job": {
      "value": "FTJ1",
      "properties": {
        "Related Analysis": {"value": "A1"},
        "Related Biosamples": {
          "items": [
            {"Related Biosample": {"value": "B0"}},
            {"Related Biosample": {"value": "B1", "properties": {"Count": {"value": 12}}}}
          ]
        }
      }
    }
  }
}`

func mustParse(t *testing.T, s string) Node {
	t.Helper()
	n, err := Parse([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestResolveFound(t *testing.T) {
	doc := mustParse(t, jobDoc)

	cases := []struct {
		path     string
		expected string
	}{
		{"status.msg", "OK"},
		{"data.Job.properties.Related Analysis.value", "A1"},
		{"data.Job.properties.Related Biosamples.items.1.Related Biosample.value", "B1"},
		{"data.Job.properties.Related Biosamples.items.1.Related Biosample.properties.Count.value", "12"},
	}

	for _, c := range cases {
		got, err := String(doc, c.path)
		if err != nil {
			t.Errorf("%s: %v", c.path, err)
			continue
		}
		if got != c.expected {
			t.Errorf("%s: expected %q, got %q", c.path, c.expected, got)
		}
	}
}

func TestResolveEmptyPathIsRoot(t *testing.T) {
	doc := mustParse(t, jobDoc)
	got, err := Resolve(doc, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind() != Object || got.Len() != 2 {
		t.Errorf("expected root object with 2 keys, got %s with %d", got.Kind(), got.Len())
	}
}

func TestResolveNotFound(t *testing.T) {
	doc := mustParse(t, jobDoc)

	for _, path := range []string{
		"missing",
		"data.Job.properties.Nope.value",
		"data.Job.properties.Related Biosamples.items.2",
		"data.Job.properties.Related Biosamples.items.-1",
		"data.Job.properties.Related Biosamples.items.first",
		"status.msg.deeper",
	} {
		_, err := Resolve(doc, path)
		if !errors.Is(err, ErrPathNotFound) {
			t.Errorf("%s: expected ErrPathNotFound, got %v", path, err)
		}

		var pe *PathError
		if !errors.As(err, &pe) || pe.Path != path {
			t.Errorf("%s: expected *PathError for the full path, got %v", path, err)
		}
	}
}

func TestStringAndItemsRequireKind(t *testing.T) {
	doc := mustParse(t, jobDoc)

	if _, err := String(doc, "data.Job"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("expected object at data.Job to fail String, got %v", err)
	}
	if _, err := Items(doc, "status.msg"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("expected scalar at status.msg to fail Items, got %v", err)
	}

	items, err := Items(doc, "data.Job.properties.Related Biosamples.items")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestTopLevelArray(t *testing.T) {
	doc := mustParse(t, `[{"Job": {"value": "x"}}, {"Job": {"value": "y"}}]`)
	got, err := String(doc, "1.Job.value")
	if err != nil {
		t.Fatal(err)
	}
	if got != "y" {
		t.Errorf("expected y, got %s", got)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	if _, err := Parse([]byte(`{} {}`)); err == nil {
		t.Error("expected an error for two concatenated documents")
	}
	if _, err := Parse([]byte(``)); err == nil {
		t.Error("expected an error for an empty document")
	}
}
