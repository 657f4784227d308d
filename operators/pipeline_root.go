package operators

import (
	"context"
	"log/slog"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
)

const AnswerPipelineRootName = "AnswerPipelineRoot"

// AnswerPipelineRootConfig configures AnswerPipelineRoot. The output files
// are optional; an empty path skips that partition.
type AnswerPipelineRootConfig struct {
	AnswerKey           string `yaml:"input_answer_key"`
	GTKey               string `yaml:"input_gt_key"`
	OutputFileWithGT    string `yaml:"output_file_with_gt"`
	OutputFileWithoutGT string `yaml:"output_file_without_gt"`
}

func DefaultAnswerPipelineRootConfig() AnswerPipelineRootConfig {
	return AnswerPipelineRootConfig{
		AnswerKey: "output",
		GTKey:     "golden_answer",
	}
}

// AnswerPipelineRoot splits a dataset by whether each row has a ground
// truth answer. A row with a blank ground truth gets one extracted from its
// answer when possible. Rows with a ground truth form the next stage and
// the with-gt file; the rest go to the without-gt file with the ground
// truth set to nil.
type AnswerPipelineRoot struct {
	base
	config AnswerPipelineRootConfig
}

func NewAnswerPipelineRoot(config AnswerPipelineRootConfig, logger *slog.Logger) (*AnswerPipelineRoot, error) {
	r := &AnswerPipelineRoot{base: newBase(AnswerPipelineRootName, logger), config: config}
	if err := r.CheckConfig(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AnswerPipelineRoot) CheckConfig() error {
	return operator.NewChecker(r.name).
		Require("input_answer_key", r.config.AnswerKey).
		Require("input_gt_key", r.config.GTKey).
		Conflict(r.config.OutputFileWithGT != "" && r.config.OutputFileWithGT == r.config.OutputFileWithoutGT,
			"output_file_with_gt and output_file_without_gt must differ").
		Err()
}

// Run creates the ground truth column when the input lacks one.
func (r *AnswerPipelineRoot) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := r.load(ctx, s, []string{r.config.AnswerKey}, nil)
	if err != nil {
		return nil, err
	}
	if !table.HasColumn(r.config.GTKey) {
		r.logger.Warn("ground truth column absent, deriving every row from answers", "column", r.config.GTKey)
	}

	truths := make([]any, table.Len())
	derived := 0
	for i, row := range table.Rows() {
		gt := row[r.config.GTKey]
		if !core.IsBlank(gt) {
			truths[i] = gt
			continue
		}
		answer := core.Text(row[r.config.AnswerKey])
		if answer == "" {
			continue
		}
		if extracted := ExtractAnswer(answer); extracted != "" {
			truths[i] = extracted
			derived++
		}
	}
	if err := table.SetColumn(r.config.GTKey, truths); err != nil {
		return nil, err
	}

	withGT := table.Filter(func(i int, _ core.Row) bool { return truths[i] != nil })
	withoutGT := table.Filter(func(i int, _ core.Row) bool { return truths[i] == nil })
	r.logger.Info("split by ground truth", "with_gt", withGT.Len(), "without_gt", withoutGT.Len(), "derived", derived)

	if err := r.writePartition(ctx, r.config.OutputFileWithGT, withGT); err != nil {
		return nil, err
	}
	if err := r.writePartition(ctx, r.config.OutputFileWithoutGT, withoutGT); err != nil {
		return nil, err
	}
	if err := r.save(ctx, s, withGT, table.Len()); err != nil {
		return nil, err
	}
	return []string{r.config.GTKey}, nil
}

func (r *AnswerPipelineRoot) writePartition(ctx context.Context, path string, table *core.Table) error {
	if path == "" || table.Len() == 0 {
		return nil
	}
	if err := storage.WriteFile(ctx, path, table); err != nil {
		return err
	}
	r.logger.Info("partition written", "path", path, "rows", table.Len())
	return nil
}
