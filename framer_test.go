package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, endpoint string) string {
	data, err := filepath.Abs("testdata")
	require.NoError(t, err)
	config := fmt.Sprintf(`base_dir: %s
data_dir: %s
feature_dimension: 256
files: [train_data.csv, notext.csv, missing.csv, cluster1_latin1.csv]
zero_shot:
  endpoint: %s
  subset_size: 3
`, dir, data, endpoint)
	fileName := filepath.Join(dir, "framer.yaml")
	require.NoError(t, ioutil.WriteFile(fileName, []byte(config), 0o644))
	return fileName
}

func execute(args string) error {
	cmd := RootCommand()
	cmd.SetArgs(strings.Split(args, " "))
	return cmd.Execute()
}

func TestFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs     string `json:"inputs"`
			Parameters struct {
				CandidateLabels []string `json:"candidate_labels"`
			} `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
			return
		}
		scores := make([]float64, len(req.Parameters.CandidateLabels))
		for i := range scores {
			scores[i] = 0.9 / float64(i+1)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{{"labels": req.Parameters.CandidateLabels, "scores": scores}})
	}))
	defer server.Close()

	dir := t.TempDir()
	config := writeConfig(t, dir, server.URL)
	models := filepath.Join(dir, "results", "trained_models")

	require.NoError(t, execute("train --log-format json -c "+config))
	for _, name := range []string{"labelframes/label2id_labelframes.json", "labelframes/id2label_labelframes.json", "topframes/label2id_topframes.json", "topframes/model.gob"} {
		_, err := os.Stat(filepath.Join(models, name))
		require.NoError(t, err, name)
	}

	require.NoError(t, execute("predict --log-level error -c "+config))
	for _, name := range []string{"train_data.csv", "cluster1_latin1.csv"} {
		out, err := ioutil.ReadFile(filepath.Join(dir, "results", name))
		require.NoError(t, err)
		header := strings.SplitN(string(out), "\n", 2)[0]
		require.Equal(t, "Text,LabelFrames,TopLabelFrames,LabelFrames_pred,TopLabelFrames_pred", header)
	}
	_, err := os.Stat(filepath.Join(dir, "results", "notext.csv"))
	require.True(t, os.IsNotExist(err))

	output := filepath.Join(dir, "eval_pred.csv")
	require.NoError(t, execute(fmt.Sprintf("test -m %s -i testdata/eval_data.csv -o %s", filepath.Join(models, "topframes"), output)))
	out, err := ioutil.ReadFile(output)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "Text,LabelFrames,TopLabelFrames,TopLabelFrames_pred,TopLabelFrames_score\n"))

	require.NoError(t, execute("zeroshot -c "+config))
	for _, name := range []string{"zs_eval_subset_TopLabelFrames.csv", "zs_eval_subset_LabelFrames.csv"} {
		_, err := os.Stat(filepath.Join(dir, "results", name))
		require.NoError(t, err, name)
	}

	runLog, err := ioutil.ReadFile(filepath.Join(dir, "READme.md"))
	require.NoError(t, err)
	log := string(runLog)
	require.Contains(t, log, "Train on LabelFrames")
	require.Contains(t, log, "Train on TopLabelFrames")
	require.Contains(t, log, "Predictions saved for 2 files")
	require.Contains(t, log, "Zero-shot evaluation (facebook/bart-large-mnli)")
	require.False(t, strings.Contains(strings.ToLower(log), "error"))
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, dir, "http://127.0.0.1:1")

	require.Error(t, execute("predict -c "+config))
	require.Error(t, execute("test -i testdata/eval_data.csv"))
	require.Error(t, execute("train --log-level verbose -c "+config))
	require.Error(t, execute("train -c "+filepath.Join(dir, "missing.yaml")))

	for _, args := range []string{
		"train --threshold 0 -c " + config,
		"predict --threshold 1.5 -c " + config,
		"test -m " + dir + " -i testdata/eval_data.csv --threshold 0",
		"zeroshot --threshold 1 -c " + config,
	} {
		err := execute(args)
		require.Error(t, err, args)
		require.Contains(t, err.Error(), "--threshold must be in (0,1)", args)
	}

	err := execute("train --multi-label -c " + config)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--multi-label needs --target-column")
	_, err = os.Stat(filepath.Join(dir, "results"))
	require.True(t, os.IsNotExist(err))
}
