package result

import "strings"

// SplitScript breaks a script into statements on semicolons that are not
// inside quotes, comments or procedural blocks. Empty statements are dropped.
//
// Dollar quoted bodies ($$ ... $$, $fn$ ... $fn$) are literals. BEGIN and CASE
// open blocks closed by END, so trigger bodies and anonymous blocks stay whole.
// Stored PL/SQL units (CREATE PROCEDURE, FUNCTION, PACKAGE, TYPE BODY,
// TRIGGER) and DECLARE blocks keep their declarations together and end after
// their outermost END, or at a line holding only "/". Procedural statements
// keep their closing semicolon.
func SplitScript(script string) []Statement {
	s := &splitter{script: script}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := closingQuote(script, i+1, c)
			s.sb.WriteString(script[i:end])
			i = end - 1
		case c == '$' && dollarTag(script[i:]) != "":
			end := closingDollar(script, i)
			s.sb.WriteString(script[i:end])
			i = end - 1
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				i = len(script)
				continue
			}
			i += end
			s.sb.WriteByte('\n')
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			// oracle hints stay part of the statement
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				end = len(script)
			} else {
				end += i + 4
			}
			if i+2 < len(script) && script[i+2] == '+' {
				s.sb.WriteString(script[i:end])
			} else {
				s.sb.WriteByte(' ')
			}
			i = end - 1
		case c == '/' && loneOnLine(script, i):
			s.flush()
		case isWordStart(c) && (i == 0 || !isWordByte(script[i-1])):
			end := i + 1
			for end < len(script) && isWordByte(script[end]) {
				end++
			}
			s.sb.WriteString(script[i:end])
			i = s.keyword(strings.ToUpper(script[i:end]), end) - 1
		case c == ';':
			s.semicolon()
		default:
			s.sb.WriteByte(c)
		}
	}
	s.flush()

	return s.stmts
}

type splitter struct {
	script string
	stmts  []Statement
	sb     strings.Builder

	blocks []string // open BEGIN, CASE and PACKAGE scopes
	words  int      // words read in the current statement
	unit   bool     // procedural unit or block
	header bool     // unit header still waiting for its AS or IS
	pkg    bool     // AS or IS of the header opens a scope closed by END
	decl   bool     // declarations ending in ';' come before the body
	done   bool     // outermost block of the unit is closed
	sub    bool     // nested subprogram header waiting for IS, AS or ';'
	nested int      // open nested subprogram bodies
}

func (s *splitter) flush() {
	sql := strings.TrimSpace(s.sb.String())
	if sql != "" {
		s.stmts = append(s.stmts, Statement{SQL: sql})
	}

	*s = splitter{script: s.script, stmts: s.stmts}
}

func (s *splitter) semicolon() {
	if s.sub && len(s.blocks) == 0 {
		// forward declaration
		s.sub = false
	}

	switch {
	case len(s.blocks) > 0 || (s.unit && s.decl && !s.done):
		s.sb.WriteByte(';')
	case s.unit && s.done:
		s.sb.WriteByte(';')
		s.flush()
	default:
		s.flush()
	}
}

// keyword updates the block state for the word ending at end and returns the
// index scanning resumes from.
func (s *splitter) keyword(w string, end int) int {
	first := s.words == 0
	s.words++

	switch w {
	case "CREATE":
		if first {
			s.createUnit(end)
		}
	case "DECLARE":
		switch {
		case first && !s.cursorDeclaration(end):
			s.unit, s.decl = true, true
		case !first && s.unit && len(s.blocks) == 0:
			s.decl = true
		}
	case "BEGIN":
		if first && s.transactionBegin(end) {
			break
		}
		if first {
			s.unit = true
		}
		s.blocks = append(s.blocks, w)
	case "CASE":
		s.blocks = append(s.blocks, w)
	case "END":
		return s.end(end)
	case "AS", "IS":
		switch {
		case s.header && len(s.blocks) == 0:
			s.header = false
			s.unitBody(end)
		case s.sub && len(s.blocks) == 0:
			s.sub = false
			s.nested++
		}
	case "PROCEDURE", "FUNCTION":
		if s.unit && s.decl && !first && len(s.blocks) == 0 {
			s.sub = true
		}
	}

	return end
}

// createUnit recognises CREATE statements holding procedural code.
func (s *splitter) createUnit(end int) {
	words := nextWords(s.script[end:], 6)
	for len(words) > 0 {
		switch words[0] {
		case "OR", "REPLACE", "EDITIONABLE", "NONEDITIONABLE":
			words = words[1:]
			continue
		}
		break
	}
	if len(words) == 0 {
		return
	}

	switch words[0] {
	case "PROCEDURE", "FUNCTION":
		s.unit, s.header = true, true
	case "PACKAGE":
		s.unit, s.header, s.pkg = true, true, true
	case "TYPE":
		if len(words) > 1 && words[1] == "BODY" {
			s.unit, s.header, s.pkg = true, true, true
		}
	case "TRIGGER":
		s.unit = true
	}
}

// unitBody looks at what follows the AS or IS of a unit header. A quoted body
// or a call spec makes the unit an ordinary statement.
func (s *splitter) unitBody(end int) {
	rest := strings.TrimLeft(s.script[end:], " \t\r\n")
	if rest != "" && (rest[0] == '\'' || rest[0] == '$') {
		s.unit = false
		return
	}

	if words := nextWords(rest, 1); len(words) > 0 && (words[0] == "LANGUAGE" || words[0] == "EXTERNAL") {
		s.unit = false
		return
	}

	if s.pkg {
		s.blocks = append(s.blocks, "PACKAGE")
		return
	}
	s.decl = true
}

func (s *splitter) end(end int) int {
	words := nextWords(s.script[end:], 1)
	next := ""
	if len(words) > 0 {
		next = words[0]
	}

	switch next {
	case "IF", "LOOP", "WHILE", "REPEAT":
		return end
	}

	// END alone is also a transaction statement
	if len(s.blocks) == 0 {
		return end
	}

	closed := s.blocks[len(s.blocks)-1]
	s.blocks = s.blocks[:len(s.blocks)-1]
	if next == "CASE" {
		skip := skipWord(s.script, end)
		s.sb.WriteString(s.script[end:skip])
		end = skip
	}

	if len(s.blocks) == 0 && closed != "CASE" {
		if s.nested > 0 {
			s.nested--
		} else {
			s.done = true
		}
	}

	return end
}

func (s *splitter) transactionBegin(end int) bool {
	rest := strings.TrimLeft(s.script[end:], " \t\r\n")
	if rest == "" || rest[0] == ';' {
		return true
	}

	words := nextWords(rest, 1)
	if len(words) == 0 {
		return false
	}

	switch words[0] {
	case "TRANSACTION", "TRAN", "WORK", "DEFERRED", "IMMEDIATE", "EXCLUSIVE", "ISOLATION", "READ":
		return true
	}

	return false
}

// cursorDeclaration reports a postgres DECLARE name ... CURSOR statement.
func (s *splitter) cursorDeclaration(end int) bool {
	words := nextWords(s.script[end:], 6)
	if len(words) < 2 {
		return false
	}

	for _, w := range words[1:] {
		switch w {
		case "BINARY", "ASENSITIVE", "INSENSITIVE", "NO", "SCROLL":
			continue
		case "CURSOR":
			return true
		}
		break
	}

	return false
}

// nextWords returns up to n upper cased words at the start of s, stopping at
// the first character that is neither a word nor blank.
func nextWords(s string, n int) []string {
	var words []string
	i := 0
	for len(words) < n {
		for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
			i++
		}
		if i >= len(s) || !isWordStart(s[i]) {
			break
		}

		start := i
		for i < len(s) && isWordByte(s[i]) {
			i++
		}
		words = append(words, strings.ToUpper(s[start:i]))
	}

	return words
}

// skipWord returns the index just past the word following the blanks at i.
func skipWord(s string, i int) int {
	for i < len(s) && strings.IndexByte(" \t\r\n", s[i]) >= 0 {
		i++
	}
	for i < len(s) && isWordByte(s[i]) {
		i++
	}

	return i
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9') || c == '$' || c == '#'
}

// loneOnLine reports whether the byte at i is the only non blank on its line.
func loneOnLine(s string, i int) bool {
	start := strings.LastIndexByte(s[:i], '\n') + 1
	end := strings.IndexByte(s[i:], '\n')
	if end < 0 {
		end = len(s)
	} else {
		end += i
	}

	return strings.TrimSpace(s[start:i]) == "" && strings.TrimSpace(s[i+1:end]) == ""
}

// dollarTag returns the opening $tag$ of a dollar quoted literal at the start
// of s, or "" when s does not start one.
func dollarTag(s string) string {
	if len(s) < 2 || s[0] != '$' {
		return ""
	}

	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			return s[:i+1]
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && i > 1:
		default:
			return ""
		}
	}

	return ""
}

// closingDollar returns the index just past the tag closing the dollar quoted
// literal starting at from.
func closingDollar(s string, from int) int {
	tag := dollarTag(s[from:])
	end := strings.Index(s[from+len(tag):], tag)
	if end < 0 {
		return len(s)
	}

	return from + len(tag) + end + len(tag)
}

// closingQuote returns the index just past the quote closing the literal
// starting at from. A doubled quote is an escaped one.
func closingQuote(s string, from int, quote byte) int {
	for i := from; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}

	return len(s)
}
