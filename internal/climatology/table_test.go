package climatology

import (
	"encoding/json"
	"testing"
)

func TestDecodeTable_PreservesColumnOrder(t *testing.T) {
	table, err := DecodeTable([]byte(`[
		{"indicativo":"3195","mes":"1","tm_min":"2,6","tm_max":"10,7"},
		{"indicativo":"3195","mes":"2","tm_min":"3,4","tm_max":"12,8","w_racha":"21"}
	]`))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"indicativo", "mes", "tm_min", "tm_max", "w_racha"}
	if len(table.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", table.Columns, want)
	}
	for i, col := range want {
		if table.Columns[i] != col {
			t.Errorf("column %d = %q, want %q", i, table.Columns[i], col)
		}
	}

	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Rows[0]["tm_min"] != "2,6" {
		t.Errorf("tm_min = %q, want %q", table.Rows[0]["tm_min"], "2,6")
	}
}

func TestDecodeTable_NumbersAndNulls(t *testing.T) {
	table, err := DecodeTable([]byte(`[{"alt":667,"activa":true,"obs":null}]`))
	if err != nil {
		t.Fatal(err)
	}

	row := table.Rows[0]
	if row["alt"] != "667" {
		t.Errorf("alt = %q, want 667", row["alt"])
	}
	if row["activa"] != "true" {
		t.Errorf("activa = %q, want true", row["activa"])
	}
	if row["obs"] != "" {
		t.Errorf("obs = %q, want empty", row["obs"])
	}
}

func TestDecodeTable_RejectsNestedValues(t *testing.T) {
	if _, err := DecodeTable([]byte(`[{"campos":{"id":"x"}}]`)); err == nil {
		t.Fatal("expected error for nested value")
	}
}

func TestDropIncompleteColumns(t *testing.T) {
	table := &Table{
		Columns: []string{"indicativo", "tm_min", "w_racha"},
		Rows: []map[string]string{
			{"indicativo": "3195", "tm_min": "2,6", "w_racha": "21"},
			{"indicativo": "3195", "tm_min": "3,4"},
		},
	}

	table.DropIncompleteColumns()

	want := []string{"indicativo", "tm_min"}
	if len(table.Columns) != 2 || table.Columns[0] != want[0] || table.Columns[1] != want[1] {
		t.Errorf("columns = %v, want %v", table.Columns, want)
	}
}

func TestRename_UsesFieldDescriptions(t *testing.T) {
	table := &Table{
		Columns: []string{"indicativo", "tm_min"},
		Rows: []map[string]string{
			{"indicativo": "3195", "tm_min": "2,6"},
		},
	}

	table.Rename(map[string]string{"tm_min": "Temperatura mínima"})

	if table.Columns[1] != "Temperatura mínima" {
		t.Errorf("column = %q, want %q", table.Columns[1], "Temperatura mínima")
	}
	if table.Rows[0]["Temperatura mínima"] != "2,6" {
		t.Errorf("renamed cell = %q, want %q", table.Rows[0]["Temperatura mínima"], "2,6")
	}
	if _, ok := table.Rows[0]["tm_min"]; ok {
		t.Error("old column name still present in row")
	}
}

func TestRename_DropsDuplicatesKeepingFirst(t *testing.T) {
	table := &Table{
		Columns: []string{"ta_min", "tm_min"},
		Rows: []map[string]string{
			{"ta_min": "-1,2", "tm_min": "2,6"},
		},
	}

	table.Rename(map[string]string{
		"ta_min": "Temperatura mínima",
		"tm_min": "Temperatura mínima",
	})

	if len(table.Columns) != 1 || table.Columns[0] != "Temperatura mínima" {
		t.Fatalf("columns = %v, want one deduplicated column", table.Columns)
	}
	if table.Rows[0]["Temperatura mínima"] != "-1,2" {
		t.Errorf("kept cell = %q, want first occurrence %q", table.Rows[0]["Temperatura mínima"], "-1,2")
	}
}

func TestParseFieldMetadata(t *testing.T) {
	fields, err := ParseFieldMetadata([]byte(`{
		"unidad_generadora":"Servicio de Banco Nacional de Datos Climatológicos",
		"campos":[
			{"id":"tm_min","descripcion":"Temperatura mínima","tipo_datos":"string"},
			{"id":"mes","descripcion":"Mes","tipo_datos":"string"}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if fields["tm_min"] != "Temperatura mínima" {
		t.Errorf("tm_min = %q", fields["tm_min"])
	}
	if fields["mes"] != "Mes" {
		t.Errorf("mes = %q", fields["mes"])
	}
}

func TestTableMarshalJSON_KeepsColumnOrder(t *testing.T) {
	table := &Table{
		Columns: []string{"mes", "tm_min"},
		Rows: []map[string]string{
			{"mes": "1", "tm_min": "2,6"},
		},
	}

	out, err := json.Marshal(table)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"columns":["mes","tm_min"],"rows":[["1","2,6"]]}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}
