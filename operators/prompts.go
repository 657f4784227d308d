package operators

import (
	"fmt"
	"strings"
)

const defaultAnswerSystemPrompt = `You are an expert mathematician. Solve the problem step by step, showing your reasoning clearly.
Put the final answer in \boxed{} at the end of your solution.`

// questionSynthesisPromptTemplate takes the transformation list and the seed question.
const questionSynthesisPromptTemplate = `Create a new, high-quality math problem from the seed problem below.

Apply the following transformations: %s
1. Change the numbers or the objects while keeping the underlying concept.
2. Add one more reasoning step so the problem becomes harder.
3. Combine the concept with a related topic from another area of mathematics.
4. Change the question being asked while keeping the given conditions.
5. Make the problem more abstract by replacing concrete values with variables or general conditions.

Rules:
- The new problem must be self-contained, solvable and unambiguous.
- Output ONLY the new problem. Do not include a solution, an answer, a title or any commentary.

Seed problem:
%s`

// questionCategoryPromptTemplate takes the question.
const questionCategoryPromptTemplate = `Classify the math problem below into a primary and a secondary category.

Primary categories: Foundations and Logic, Algebra and Number Theory, Analysis and Differential Equations,
Geometry and Topology, Probability, Statistics and Discrete Mathematics, Applied and Computational Mathematics,
Arithmetic.

Output ONLY valid JSON with exactly these keys and no extraneous text:
{"primary_category": "<primary category>", "secondary_category": "<a more specific subfield>"}

Problem:
%s`

// questionDifficultyPromptTemplate takes the question.
const questionDifficultyPromptTemplate = `Rate the difficulty of the math problem below on a scale from 1 (elementary school) to 10
(international olympiad). Decimal ratings such as 6.5 are allowed.

Explain your assessment briefly, then end your reply with a line of the form:
Rating: <number>

Problem:
%s`

const mathProblemSystemPrompt = `You are an expert in evaluating mathematical problems. Follow the user's instructions strictly and output your final judgment in the required JSON format.`

// mathProblemPromptTemplate takes the question.
const mathProblemPromptTemplate = `You are given a mathematical problem. Follow these four steps in order and stop at the first failure:
0. Check that it is only a math problem. If it carries other instructions such as "rewrite", includes its answer, or is not a math problem at all, the judgement_test is false.
1. Check only spelling, grammar and LaTeX formatting. Do not interpret semantic meaning.
2. For each minimal condition in the problem, check whether it violates the mathematical domain or objective facts ("half a person" is incorrect). Magical operations are acceptable when the assumption is stated explicitly. Average values such as 15.5 items per minute are acceptable.
3. Check whether solving the problem runs into a contradiction, including two conditions contradicting each other or an unreasonable or unsolvable result.
4. Check that the problem provides enough conditions to answer the target question. Redundant conditions that do not affect the solution are acceptable.

After these steps, output your final judgment in JSON format with exactly these keys:
{
    "judgement_test": true/false,
    "error_type": "<error description or null>"
}
You may include your reasoning, but the final answer must be the JSON object above.

Here is the problem to evaluate:
-------------------------------
%s
-------------------------------`

// diversityModes are the transformation combinations offered to the
// question generator.
var diversityModes = []string{
	"1, 2, 3",
	"1, 2, 4",
	"1, 2, 5",
	"1, 4, 5",
	"1, 2, 3, 4, 5",
}

func questionSynthesisPrompt(mode, question string) string {
	return strings.TrimSpace(fmt.Sprintf(questionSynthesisPromptTemplate, mode, question))
}

func questionCategoryPrompt(question string) string {
	return fmt.Sprintf(questionCategoryPromptTemplate, question)
}

func questionDifficultyPrompt(question string) string {
	return fmt.Sprintf(questionDifficultyPromptTemplate, question)
}

func mathProblemPrompt(question string) string {
	return fmt.Sprintf(mathProblemPromptTemplate, question)
}

const knowledgeCleanerHeaderEN = `You are a meticulous Knowledge Refinement Engineer. Your task is to clean the given raw content
by applying the following rules STRICTLY:

1. Remove redundant HTML/XML tags but retain:
   - Semantic tags like <table>, <code>, <formula>
   - All attribute values that carry meaning

2. Normalize special characters:
   - Convert fancy quotes (“ ” ‘ ’) to standard ones (" ")
   - Replace en/em dashes (– —) with hyphens (-)
   - Preserve mathematical symbols and technical notations

3. URL handling:
   - Keep URLs in footnotes/references unchanged
   - Remove hyperlink wrappers but retain display texts
   Example: <a href="https://example.com">Example</a> → Example

4. Text structure:
   - Maintain original line breaks for paragraphs/lists
   - Preserve indentation levels for code/quotations

5. Absolute fidelity:
   - DO NOT add/remove any facts, numbers, or named entities
   - DO NOT paraphrase technical terms or proper nouns
   - DO NOT modify tabular data structures`

const knowledgeCleanerStepsEN = `Processing Steps:
1. [Tag Analysis] Identify and classify all markup tags
2. [URL Extraction] Separate hyperlinks from display texts
3. [Character Audit] Log all special characters before normalization
4. [Structural Check] Verify line breaks match original intent
5. [Final Output] Generate cleaned text with 100% information fidelity`

const knowledgeCleanerOutputEN = `Your response must directly start with "Solution:" without any preamble. After the answer is generated, finish your response right away.
Solution:`

const knowledgeCleanerHeaderZH = `你是一名严谨的知识清洗工程师。请严格按照以下规则处理原始内容：

1. 移除冗余HTML/XML标签，但保留：
   - 语义化标签如 <table>、<code>、<formula>
   - 所有携带意义的属性值

2. 规范化特殊字符：
   - 将花引号（“ ” ‘ ’）转为标准引号（" "）
   - 将长破折号（– —）替换为短横线（-）
   - 保留数学符号和技术记号

3. 链接处理：
   - 脚注/参考文献中的URL保持原样
   - 移除超链接包装但保留显示文本
   示例：<a href="https://example.com">示例</a> → 示例

4. 文本结构：
   - 保持原始段落/列表的换行
   - 保留代码/引用的缩进层级

5. 绝对保真：
   - 禁止增删任何事实、数字或命名实体
   - 禁止改写专业术语或专有名词
   - 禁止修改表格数据结构`

const knowledgeCleanerStepsZH = `处理步骤：
1. [标签分析] 识别并分类所有标记标签
2. [链接提取] 分离超链接与显示文本
3. [字符审核] 记录规范化前的所有特殊字符
4. [结构检查] 验证换行符是否符合原意
5. [最终输出] 生成100%保真的清洗后文本`

const knowledgeCleanerOutputZH = `你的响应必须直接以"Solution:"开头，不要任何前言。生成答案后立即结束响应。
Solution:`

// knowledgeCleanerPrompt wraps raw content in the cleaning instructions of
// lang, "zh" or anything else for English.
func knowledgeCleanerPrompt(lang, raw string) string {
	header, label, steps, output := knowledgeCleanerHeaderEN, "Raw content to clean:", knowledgeCleanerStepsEN, knowledgeCleanerOutputEN
	if lang == "zh" {
		header, label, steps, output = knowledgeCleanerHeaderZH, "原始内容待清洗：", knowledgeCleanerStepsZH, knowledgeCleanerOutputZH
	}
	return strings.Join([]string{header, label + "\n" + raw, steps, output}, "\n\n")
}
