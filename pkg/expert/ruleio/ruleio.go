// Package ruleio imports rule text in bulk: plain files with one rule per
// line, or an HTML page (a saved wiki export, for instance) whose text
// nodes contain SE ... ENTÃO lines. Malformed lines never abort an import;
// they are collected and reported while the rest proceeds.
package ruleio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/expert/pkg/expert/rule"
)

// LineError records one rejected line.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) String() string {
	return fmt.Sprintf("line %d: %v | %s", e.Line, e.Err, e.Text)
}

// Result is the outcome of one import: the rules that parsed, in source
// order, and the lines that did not.
type Result struct {
	Rules  []rule.Rule
	Errors []LineError
}

// ParseLines reads one rule per line. Blank lines and lines starting with
// # or // are skipped; a trailing ; is tolerated.
func ParseLines(r io.Reader) (Result, error) {
	var res Result
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		line = strings.TrimSuffix(line, ";")
		parsed, err := rule.ParseRule(line)
		if err != nil {
			res.Errors = append(res.Errors, LineError{Line: lineNum, Text: line, Err: err})
			continue
		}
		res.Rules = append(res.Rules, parsed)
	}
	return res, scanner.Err()
}

var ruleLineRE = regexp.MustCompile(`(?i)^\s*SE\b.*(\bENT[ÃA]O\b|->|=>)`)

// ParseHTML extracts the page's text nodes and imports every line shaped
// like a rule. Surrounding page text is ignored rather than reported as an
// error.
func ParseHTML(r io.Reader) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, part := range strings.Split(n.Data, "\n") {
				if s := strings.TrimSpace(part); s != "" {
					lines = append(lines, s)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var res Result
	for i, line := range lines {
		if !ruleLineRE.MatchString(line) {
			continue
		}
		line = strings.TrimSuffix(line, ";")
		parsed, err := rule.ParseRule(line)
		if err != nil {
			res.Errors = append(res.Errors, LineError{Line: i + 1, Text: line, Err: err})
			continue
		}
		res.Rules = append(res.Rules, parsed)
	}
	return res, nil
}

// LoadFile imports a rule file, dispatching on extension: .html/.htm pages
// go through the HTML extractor, everything else is read line by line.
func LoadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ParseHTML(f)
	default:
		return ParseLines(f)
	}
}
