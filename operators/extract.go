package operators

import (
	"regexp"
	"strings"
)

var (
	lastNumberPattern = regexp.MustCompile(`-?\d*\.?\d+`)
	arrayBeginPattern = regexp.MustCompile(`\\begin\{array\}\{.*?\}`)
	textMacroPattern  = regexp.MustCompile(`\\text\{(.*?)\}`)
	sqrtPattern       = regexp.MustCompile(`\\sqrt(\w+)`)

	latexReplacer = strings.NewReplacer(
		`\end{array}`, `\end{pmatrix}`,
		"bmatrix", "pmatrix",
		"tfrac", "frac",
		"dfrac", "frac",
		`\neq`, `\ne`,
		`\leq`, `\le`,
		`\geq`, `\ge`,
		`\left`, "",
		`\right`, "",
		`\{`, "{",
		`\}`, "}",
	)
	delimiterReplacer = strings.NewReplacer(
		`^{\circ}`, "",
		`^\circ`, "",
		`\$`, "",
		"$", "",
		`\(`, "",
		`\)`, "",
	)
	variableReplacer = strings.NewReplacer(
		"x=", "", "y=", "", "z=", "",
		`x\in`, "", `y\in`, "", `z\in`, "",
		`x\to`, "", `y\to`, "", `z\to`, "",
	)
	setReplacer = strings.NewReplacer(
		`\emptyset`, "{}",
		`(-\infty,\infty)`, `\mathbb{R}`,
		"%", "",
		" .", " 0.",
		"{.", "{0.",
	)
)

// ExtractAnswer pulls the final answer out of a worked solution and
// normalizes its LaTeX. It looks, in order, for a "final answer is $...$. I
// hope" sentence, the last \boxed{...} expression, the last "the answer
// is", and finally the last number in the text. It returns "" when nothing
// is found.
func ExtractAnswer(solution string) string {
	solution = strings.ReplaceAll(solution, "ки", "")

	var pred string
	switch {
	case strings.Contains(solution, "final answer is $") && strings.Contains(solution, "$. I hope"):
		_, after, _ := strings.Cut(solution, "final answer is $")
		pred, _, _ = strings.Cut(after, "$. I hope")
		pred = strings.TrimSpace(pred)
	case strings.Contains(solution, "boxed"):
		pred = boxedAnswer(solution)
	case strings.Contains(solution, "he answer is"):
		pred = strings.TrimSpace(solution[strings.LastIndex(solution, "he answer is")+len("he answer is"):])
	default:
		numbers := lastNumberPattern.FindAllString(strings.ReplaceAll(solution, ",", ""), -1)
		if len(numbers) > 0 {
			pred = numbers[len(numbers)-1]
		}
	}
	return cleanAnswer(pred)
}

func boxedAnswer(solution string) string {
	ans := solution[strings.LastIndex(solution, "boxed")+len("boxed"):]
	if !strings.HasPrefix(ans, "{") {
		before, _, _ := strings.Cut(ans, "$")
		return strings.TrimSpace(before)
	}
	depth := 1
	var b strings.Builder
	for _, r := range ans[1:] {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b.String()
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.TrimRight(s, ".")
	s = strings.ReplaceAll(s, `\!`, "")
	s = arrayBeginPattern.ReplaceAllString(s, `\begin{pmatrix}`)
	s = latexReplacer.Replace(s)
	s = delimiterReplacer.Replace(s)
	s = textMacroPattern.ReplaceAllString(s, "$1")
	s = sqrtPattern.ReplaceAllString(s, `\sqrt{$1}`)
	s = variableReplacer.Replace(s)
	return setReplacer.Replace(s)
}
