package loaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/df07/go-spectral-pathtracer/pkg/core"
)

// ScriptTimeout is the hard limit for evaluating a single scene script
const ScriptTimeout = 10 * time.Second

// ScriptError is a parse or evaluation error in a scene script
type ScriptError struct {
	Line    int // 0 when the interpreter gave no position
	Message string
}

func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// LoadScriptFile evaluates the scene script at path. The description is
// named after the file.
func LoadScriptFile(ctx context.Context, path string) (*Description, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene script: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d, err := LoadScript(ctx, name, string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// LoadScript evaluates a scene script in a fresh sandboxed interpreter and
// returns the scene it describes. Evaluation stops at ScriptTimeout or when
// ctx is done. Script errors carry status InvalidArgument and unwrap to a
// *ScriptError.
func LoadScript(ctx context.Context, name, source string) (*Description, error) {
	ctx, cancel := context.WithTimeout(ctx, ScriptTimeout)
	defer cancel()

	ch := make(chan scriptResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- scriptResult{err: core.NewError(core.StatusInvalidArgument, "script.load", fmt.Sprintf("panic during evaluation: %v", r))}
			}
		}()
		d, err := evaluate(name, source)
		ch <- scriptResult{desc: d, err: err}
	}()

	return awaitScript(ctx, name, ch)
}

type scriptResult struct {
	desc *Description
	err  error
}

// awaitScript waits for the evaluation result. When ctx finishes first the
// result is drained in the background and its description released.
func awaitScript(ctx context.Context, name string, ch <-chan scriptResult) (*Description, error) {
	select {
	case res := <-ch:
		return res.desc, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.desc != nil {
				res.desc.Release()
			}
		}()
		return nil, fmt.Errorf("evaluating scene script %q: %w", name, ctx.Err())
	}
}

// evaluate runs source against the scene builtins
func evaluate(name, source string) (*Description, error) {
	b := newBuilder(name)
	defer b.releaseOwned()

	if strings.TrimSpace(source) == "" {
		return b.desc, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		b.desc.Release()
		return nil, core.WrapError(core.StatusInvalidArgument, "script.parse", parseScriptError(err))
	}
	if _, err := env.Run(); err != nil {
		b.desc.Release()
		return nil, core.WrapError(core.StatusInvalidArgument, "script.run", parseScriptError(err))
	}
	return b.desc, nil
}

// linePattern matches interpreter messages of the form "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ..." messages
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseScriptError extracts the line number, when present, from an
// interpreter error. Text around the position marker is kept.
func parseScriptError(err error) *ScriptError {
	msg := err.Error()
	for _, pattern := range []*regexp.Regexp{linePattern, linePatternShort} {
		loc := pattern.FindStringSubmatchIndex(msg)
		if loc == nil {
			continue
		}
		line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
		var parts []string
		for _, part := range []string{msg[:loc[0]], msg[loc[4]:loc[5]], msg[loc[1]:]} {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		return &ScriptError{Line: line, Message: strings.Join(parts, " ")}
	}
	return &ScriptError{Message: strings.TrimSpace(msg)}
}

// kwPrefix marks keyword names rewritten by preprocessSource
const kwPrefix = "__kw_"

// preprocessSource rewrites scene script source for the interpreter:
//
//  1. :keyword becomes the string "__kw_keyword", so keywords need no
//     global symbols.
//  2. Identifiers written in kebab-case become snake_case (sdf-box becomes
//     sdf_box); the interpreter reads a hyphen as subtraction.
//  3. Lisp ; comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch c := b[i]; {
		case c == '"':
			result = append(result, c)
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}

		case c == ';':
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKeywordChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++

		default:
			result = append(result, c)
			i++
		}
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isKeywordChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}
