// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package operators

import (
	"errors"

	"github.com/poiesic/dataforge/operator"
)

// Register adds every stock operator to reg under its exported name.
func Register(reg *operator.Registry) error {
	var errs []error
	for name, factory := range factories() {
		errs = append(errs, reg.Register(name, operator.Entry{
			Factory:     factory,
			Description: descriptions[name],
		}))
	}
	return errors.Join(errs...)
}

// NewRegistry returns a registry holding every stock operator.
func NewRegistry() (*operator.Registry, error) {
	reg := operator.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func factories() map[string]operator.Factory {
	return map[string]operator.Factory{
		NgramFilterName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, DefaultNgramFilterConfig())
			if err != nil {
				return nil, err
			}
			return NewNgramFilter(config, d.Logger)
		},
		AnswerNgramFilterName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, DefaultAnswerNgramFilterConfig())
			if err != nil {
				return nil, err
			}
			return NewAnswerNgramFilter(config, d.Logger)
		},
		AnswerTokenLengthFilterName: operator.Lazy(func() (operator.Factory, error) {
			// the default encoding is loaded once, on the first build
			counters := newTokenCounters()
			_, _ = counters.resolve(DefaultAnswerTokenLengthFilterConfig().Model)
			return func(p operator.Params, d operator.Deps) (operator.Operator, error) {
				config, err := decode(p, DefaultAnswerTokenLengthFilterConfig())
				if err != nil {
					return nil, err
				}
				f, err := NewAnswerTokenLengthFilter(config, counters.Count, d.Logger)
				if err != nil {
					return nil, err
				}
				if _, err := counters.resolve(config.Model); err != nil {
					f.logger.Warn("tokenizer unavailable, counting approximately", "model", config.Model, "err", err)
				}
				return f, nil
			}, nil
		}),
		AnswerFormatterFilterName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, DefaultAnswerFormatterFilterConfig())
			if err != nil {
				return nil, err
			}
			return NewAnswerFormatterFilter(config, d.Logger)
		},
		AnswerGroundTruthFilterName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, DefaultAnswerGroundTruthFilterConfig())
			if err != nil {
				return nil, err
			}
			return NewAnswerGroundTruthFilter(config, d.Logger)
		},
		AnswerPipelineRootName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, DefaultAnswerPipelineRootConfig())
			if err != nil {
				return nil, err
			}
			return NewAnswerPipelineRoot(config, d.Logger)
		},
		HTMLURLRemoverName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, HTMLURLRemoverConfig{})
			if err != nil {
				return nil, err
			}
			return NewHTMLURLRemover(config, d.Logger)
		},
		PretrainFormatConverterName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, DefaultPretrainFormatConverterConfig())
			if err != nil {
				return nil, err
			}
			return NewPretrainFormatConverter(config, d.Logger)
		},
		ContentDeduplicatorName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			config, err := decode(p, ContentDeduplicatorConfig{})
			if err != nil {
				return nil, err
			}
			return NewContentDeduplicator(config, d.Logger)
		},

		AnswerGeneratorName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(AnswerGeneratorName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultAnswerGeneratorConfig())
			if err != nil {
				return nil, err
			}
			return NewAnswerGenerator(config, srv, d.Logger)
		},
		QuestionGeneratorName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(QuestionGeneratorName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultQuestionGeneratorConfig())
			if err != nil {
				return nil, err
			}
			return NewQuestionGenerator(config, srv, d.Logger)
		},
		QuestionCategoryClassifierName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(QuestionCategoryClassifierName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultQuestionCategoryClassifierConfig())
			if err != nil {
				return nil, err
			}
			return NewQuestionCategoryClassifier(config, srv, d.Logger)
		},
		QuestionDifficultyClassifierName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(QuestionDifficultyClassifierName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultQuestionDifficultyClassifierConfig())
			if err != nil {
				return nil, err
			}
			return NewQuestionDifficultyClassifier(config, srv, d.Logger)
		},
		MathProblemFilterName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(MathProblemFilterName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultMathProblemFilterConfig())
			if err != nil {
				return nil, err
			}
			return NewMathProblemFilter(config, srv, d.Logger)
		},
		PseudoAnswerGeneratorName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(PseudoAnswerGeneratorName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultPseudoAnswerGeneratorConfig())
			if err != nil {
				return nil, err
			}
			return NewPseudoAnswerGenerator(config, srv, d.Logger)
		},
		KnowledgeCleanerName: func(p operator.Params, d operator.Deps) (operator.Operator, error) {
			srv, err := d.RequireServing(KnowledgeCleanerName)
			if err != nil {
				return nil, err
			}
			config, err := decode(p, DefaultKnowledgeCleanerConfig())
			if err != nil {
				return nil, err
			}
			return NewKnowledgeCleaner(config, srv, d.Logger)
		},
	}
}

// decode overlays params onto a default config.
func decode[T any](params operator.Params, config T) (T, error) {
	if err := params.Decode(&config); err != nil {
		return config, err
	}
	return config, nil
}

var descriptions = map[string]operator.Description{
	NgramFilterName: {
		ZH: "基于 n-gram 重复度过滤文本。\n\n输入参数：\n- input_key：文本列\n- output_key：分数列（默认 NgramScore）\n- min_score / max_score：保留的分数区间\n- ngrams：n-gram 长度（默认 5）",
		EN: "Filters rows by n-gram repetition of a text column.\n\nParameters:\n- input_key: text column\n- output_key: score column (default NgramScore)\n- min_score / max_score: score range to keep\n- ngrams: n-gram length (default 5)",
	},
	AnswerNgramFilterName: {
		ZH: "基于问题与答案拼接文本的 n-gram 重复度过滤问答对。\n\n输入参数：\n- question_key / answer_key：问题列与答案列\n- min_score / max_score：保留的分数区间\n- ngrams：n-gram 长度",
		EN: "Filters question/answer pairs by n-gram repetition of their combined text.\n\nParameters:\n- question_key / answer_key: question and answer columns\n- min_score / max_score: score range to keep\n- ngrams: n-gram length",
	},
	AnswerTokenLengthFilterName: {
		ZH: "过滤 token 数超过上限的答案。\n\n输入参数：\n- input_key：答案列\n- max_answer_token_length：最大 token 数\n- model：用于分词的模型名",
		EN: "Drops answers longer than a token budget.\n\nParameters:\n- input_key: answer column\n- max_answer_token_length: maximum tokens\n- model: model whose tokenizer counts tokens",
	},
	AnswerFormatterFilterName: {
		ZH: "保留能够提取出最终答案的样本。\n\n输入参数：\n- input_key：答案列",
		EN: "Keeps rows whose answer contains an extractable final answer.\n\nParameters:\n- input_key: answer column",
	},
	AnswerGroundTruthFilterName: {
		ZH: "比较提取出的答案与标准答案，保留一致的样本。\n\n输入参数：\n- test_answer_key：待测答案列\n- gt_answer_key：标准答案列\n- compare_method：exact 或 numeric",
		EN: "Keeps rows whose extracted answer matches the ground truth.\n\nParameters:\n- test_answer_key: answer column under test\n- gt_answer_key: ground truth column\n- compare_method: exact or numeric",
	},
	AnswerPipelineRootName: {
		ZH:      "答案处理流程根节点，按是否有标准答案将数据分流；缺失标准答案时尝试从答案中提取。\n\n输入参数：\n- input_answer_key：答案列\n- input_gt_key：标准答案列\n- output_file_with_gt / output_file_without_gt：分流输出文件",
		EN:      "Root of the answer pipeline. Splits rows by whether they have a ground truth, extracting one from the answer when it is missing.\n\nParameters:\n- input_answer_key: answer column\n- input_gt_key: ground truth column\n- output_file_with_gt / output_file_without_gt: partition files",
		Generic: "AnswerPipelineRoot routes data to different processing branches.",
	},
	AnswerGeneratorName: {
		ZH: "调用模型为每个问题生成答案。\n\n输入参数：\n- input_key：问题列\n- output_key：答案列\n- system_prompt：系统提示词",
		EN: "Generates an answer for every question with the serving model.\n\nParameters:\n- input_key: question column\n- output_key: answer column\n- system_prompt: system prompt",
	},
	QuestionGeneratorName: {
		ZH: "基于现有问题合成新问题，每个原问题生成 1-5 个。\n\n输入参数：\n- input_key：问题列\n- num_prompts：每个问题生成的数量\n- seed：随机种子\n\n输出参数：\n- Synth_or_Input：标记 synth 或 input",
		EN: "Synthesizes new questions from existing ones, 1-5 per original.\n\nParameters:\n- input_key: question column\n- num_prompts: generations per question\n- seed: random seed\n\nOutputs:\n- Synth_or_Input: tags rows synth or input",
	},
	QuestionCategoryClassifierName: {
		ZH: "调用模型对问题进行主/次分类。\n\n输入参数：\n- input_key：问题列\n- output_key：原始分类结果列\n\n输出参数：\n- primary_category / secondary_category",
		EN: "Classifies questions into primary and secondary categories.\n\nParameters:\n- input_key: question column\n- output_key: raw classification column\n\nOutputs:\n- primary_category / secondary_category",
	},
	QuestionDifficultyClassifierName: {
		ZH: "调用模型为问题难度打分（1-10）。\n\n输入参数：\n- input_key：问题列\n- output_key：难度分数列（无法解析时为 -1）",
		EN: "Rates question difficulty from 1 to 10.\n\nParameters:\n- input_key: question column\n- output_key: difficulty column (-1 when unreadable)",
	},
	MathProblemFilterName: {
		ZH: "调用模型检查数学问题的正确性与可解性，保留通过的样本。\n\n输入参数：\n- input_key：问题列",
		EN: "Asks the model whether each math problem is well-formed and solvable, keeping those that pass.\n\nParameters:\n- input_key: question column",
	},
	PseudoAnswerGeneratorName: {
		ZH:      "对每个问题多次生成解答，按提取出的答案投票选出伪标准答案。\n\n输入参数：\n- input_key：问题列\n- max_times：每个问题的生成次数\n- system_prompt：系统提示词\n\n输出参数：\n- output_key_answer：每次生成提取出的答案列表\n- output_key_answer_value：得票最多的答案\n- output_key_solutions：与该答案一致的解答\n- output_key_correct_solution_example：其中第一个解答",
		EN:      "Solves every question several times and votes on the extracted answers to pick a pseudo ground truth.\n\nParameters:\n- input_key: question column\n- max_times: attempts per question\n- system_prompt: system prompt\n\nOutputs:\n- output_key_answer: extracted answer of every attempt\n- output_key_answer_value: most frequent answer\n- output_key_solutions: solutions agreeing with it\n- output_key_correct_solution_example: the first of those solutions",
		Generic: "PseudoAnswerGenerator produces pseudo-answers through multi-round generation and selection.",
	},
	KnowledgeCleanerName: {
		ZH: "调用模型清洗原始知识文本：去除冗余标签、规范字符，同时保持事实完全不变。\n\n输入参数：\n- input_key：原始文本列（默认 raw_content）\n- output_key：清洗结果列（默认 cleaned）\n- lang：提示词语言 en 或 zh",
		EN: "Has the model clean raw knowledge text, removing redundant markup and normalizing characters while keeping every fact.\n\nParameters:\n- input_key: raw text column (default raw_content)\n- output_key: cleaned text column (default cleaned)\n- lang: prompt language, en or zh",
	},
	HTMLURLRemoverName: {
		ZH: "去除文本中的 URL 与 HTML 标签。\n\n输入参数：\n- input_keys：需要清洗的文本列",
		EN: "Removes URLs and HTML tags from text columns.\n\nParameters:\n- input_keys: text columns to clean",
	},
	PretrainFormatConverterName: {
		ZH: "将 SFT 问答对转换为预训练文本格式。\n\n输入参数：\n- read_key_question / read_key_answer：问题列与答案列\n- output_key：输出文本列（默认 text）",
		EN: "Converts SFT question/answer pairs into pretraining text.\n\nParameters:\n- read_key_question / read_key_answer: question and answer columns\n- output_key: text column (default text)",
	},
	ContentDeduplicatorName: {
		ZH: "按内容哈希去除重复行。\n\n输入参数：\n- input_keys：参与比较的列（为空时使用全部列）",
		EN: "Drops rows whose content hash repeats an earlier row.\n\nParameters:\n- input_keys: columns compared (all when empty)",
	},
}
