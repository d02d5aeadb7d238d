package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/lexcheck/pkg/evaluate"
)

const cliCatalogCSV = `case_id,case_title,case_description,side,principle,article,weight,keywords
1,Medicamento negado,Paciente sem remédio,defesa,Direito à Saúde,CF art. 196,5,direito a saude;saude
1,Medicamento negado,Paciente sem remédio,defesa,Dignidade,CF art. 1 III,3,dignidade
1,Medicamento negado,Paciente sem remédio,acusacao,Reserva do Possível,ADPF 45,4,reserva do possivel
`

func setupCLI(t *testing.T) (configPath, catalogsDir string) {
	t.Helper()
	root := t.TempDir()
	catalogsDir = filepath.Join(root, "catalogs")
	dir := filepath.Join(catalogsDir, "principios-br")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte("id: principios-br\nversion: \"1\"\ntitle: Princípios\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte(cliCatalogCSV), 0o644))

	configPath = filepath.Join(root, "lexcheck.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: error\ncatalogs_dir: "+catalogsDir+"\n"), 0o644))
	return configPath, catalogsDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_EvaluateJSON(t *testing.T) {
	configPath, _ := setupCLI(t)

	out, err := execute(t, "--config", configPath, "evaluate",
		"--case", "1", "--side", "Defesa", "--text", "Invoco o direito à saúde", "--file", "", "--format", "json", "--out", "")
	require.NoError(t, err)

	var res evaluate.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 5.0, res.Score)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "Direito à Saúde", res.Matched[0].Principle)
	require.Len(t, res.Recommended, 1)
	require.Len(t, res.Counterarguments, 1)
}

func TestCLI_EvaluateReportFile(t *testing.T) {
	configPath, _ := setupCLI(t)
	argFile := filepath.Join(t.TempDir(), "brief.txt")
	require.NoError(t, os.WriteFile(argFile, []byte("a dignidade da pessoa humana"), 0o644))
	outFile := filepath.Join(t.TempDir(), "report.csv")

	_, err := execute(t, "--config", configPath, "evaluate",
		"--case", "1", "--side", "defesa", "--text", "", "--file", argFile, "--format", "csv", "--out", outFile)
	require.NoError(t, err)

	f, err := os.Open(outFile)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Medicamento negado", records[1][2])
	assert.Equal(t, "matched", records[1][4])
	assert.Equal(t, "Dignidade", records[1][5])
}

func TestCLI_EvaluateSummary(t *testing.T) {
	configPath, _ := setupCLI(t)

	out, err := execute(t, "--config", configPath, "evaluate",
		"--case", "1", "--side", "defesa", "--text", "nada a ver", "--file", "", "--format", "text", "--out", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Case 1 - Medicamento negado, side defesa")
	assert.Contains(t, out, "Try more direct keywords")
	assert.Contains(t, out, "! [acusacao] Reserva do Possível (ADPF 45)")
}

func TestCLI_Cases(t *testing.T) {
	configPath, _ := setupCLI(t)

	out, err := execute(t, "--config", configPath, "cases")
	require.NoError(t, err)
	assert.Contains(t, out, "principios-br")
	assert.Contains(t, out, "Medicamento negado")
	assert.Contains(t, out, "defesa, acusacao")

	_, err = execute(t, "--config", configPath, "cases", "nope")
	assert.Error(t, err)
}

func TestCLI_Normalize(t *testing.T) {
	configPath, _ := setupCLI(t)

	out, err := execute(t, "--config", configPath, "normalize", "Súmula", "Vinculante", "nº 11!")
	require.NoError(t, err)
	assert.Contains(t, out, "sumula vinculante n 11\n")
}

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs([]string{"case_id=1", "text=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"case_id": "1", "text": "a=b"}, args)

	_, err = parseToolArgs([]string{"novalue"})
	assert.Error(t, err)
}
