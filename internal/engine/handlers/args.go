package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/hopper1357/VTT/internal/apperr"
)

// Args - разобранная команда: позиционные аргументы и опции key=value.
type Args struct {
	Verb       string // "object move", "help"...
	Positional []string
	Options    map[string]string
}

// Tokenize делит строку на слова с учетом кавычек ("..." и '...').
// Внутри двойных кавычек работает экранирование \" и \\.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inToken bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote != 0:
			if r == '\\' && quote == '"' {
				escaped = true
			} else if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}

	if quote != 0 || escaped {
		return nil, apperr.Invalid("unterminated quote in command")
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// Join собирает слова обратно. Tokenize(Join(x)) == x.
func Join(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = quoteToken(t)
	}
	return strings.Join(parts, " ")
}

func quoteToken(t string) string {
	if t != "" && !strings.ContainsAny(t, " \t\n\r\"'\\") {
		return t
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range t {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// isOptionKey - ключ опции: строчные латинские буквы, цифры и '_'.
func isOptionKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// NewArgs раскладывает слова после глагола на позиционные аргументы и опции.
func NewArgs(verb string, words []string) Args {
	a := Args{Verb: verb, Options: make(map[string]string)}
	for _, w := range words {
		if k, v, ok := strings.Cut(w, "="); ok && isOptionKey(k) {
			a.Options[k] = v
			continue
		}
		a.Positional = append(a.Positional, w)
	}
	return a
}

func (a Args) Len() int {
	return len(a.Positional)
}

// Arg возвращает i-й позиционный аргумент или "".
func (a Args) Arg(i int) string {
	if i < 0 || i >= len(a.Positional) {
		return ""
	}
	return a.Positional[i]
}

// Require проверяет минимальное число позиционных аргументов.
func (a Args) Require(n int, usage string) error {
	if len(a.Positional) < n {
		return apperr.Invalid("usage: %s", usage)
	}
	return nil
}

// Int разбирает i-й аргумент как целое.
func (a Args) Int(i int, name string) (int, error) {
	raw := a.Arg(i)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("%s must be an integer, got '%s'", name, raw)
	}
	return n, nil
}

func (a Args) Opt(key string) (string, bool) {
	v, ok := a.Options[key]
	return v, ok
}

func (a Args) OptInt(key string, def int) (int, error) {
	raw, ok := a.Options[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("%s must be an integer, got '%s'", key, raw)
	}
	return n, nil
}

// OptIntPtr - необязательное целое: nil, если опции нет.
func (a Args) OptIntPtr(key string) (*int, error) {
	if _, ok := a.Options[key]; !ok {
		return nil, nil
	}
	n, err := a.OptInt(key, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (a Args) OptBool(key string, def bool) (bool, error) {
	raw, ok := a.Options[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Invalid("%s must be true or false, got '%s'", key, raw)
	}
	return b, nil
}

func (a Args) OptFloat(key string, def float64) (float64, error) {
	raw, ok := a.Options[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.Invalid("%s must be a number, got '%s'", key, raw)
	}
	return f, nil
}

// Set меняет опцию (канонизация: id=, owner=...).
func (a *Args) Set(key, value string) {
	if a.Options == nil {
		a.Options = make(map[string]string)
	}
	a.Options[key] = value
}

// Canonical - каноническая строка команды: глагол, позиционные аргументы,
// опции по алфавиту. Реплика выполняет ее и получает тот же результат.
func (a Args) Canonical() string {
	tokens := strings.Fields(a.Verb)
	tokens = append(tokens, a.Positional...)

	keys := make([]string, 0, len(a.Options))
	for k := range a.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tokens = append(tokens, k+"="+a.Options[k])
	}
	return Join(tokens)
}

func sprintf(format string, a ...any) string {
	if len(a) == 0 {
		return format
	}
	return fmt.Sprintf(format, a...)
}
