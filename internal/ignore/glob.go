package ignore

// wildcardMatch reports whether name matches the shell-style glob pattern.
// Supported syntax: '*' (any run, including empty), '?' (exactly one
// rune), '[...]' and negated '[!...]' character classes with optional
// ranges ('a-z'). Matching is a straightforward recursive-with-memoless-
// backtracking implementation since patterns here are short (file
// extensions and folder names, not full paths).
func wildcardMatch(pattern, name string) bool {
	return matchHere([]rune(pattern), []rune(name))
}

func matchHere(pat, name []rune) bool {
	for len(pat) > 0 {
		switch pat[0] {
		case '*':
			// Collapse consecutive '*' and try every possible split.
			for len(pat) > 0 && pat[0] == '*' {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchHere(pat, name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(name) == 0 {
				return false
			}
			pat = pat[1:]
			name = name[1:]
		case '[':
			end := classEnd(pat)
			if end < 0 || len(name) == 0 {
				return false
			}
			if !matchClass(pat[1:end], name[0]) {
				return false
			}
			pat = pat[end+1:]
			name = name[1:]
		default:
			if len(name) == 0 || name[0] != pat[0] {
				return false
			}
			pat = pat[1:]
			name = name[1:]
		}
	}
	return len(name) == 0
}

// classEnd returns the index of the closing ']' for a class starting at
// pat[0] == '[', or -1 if the class is unterminated; matchHere then fails
// the whole pattern, so it matches nothing rather than crashing.
func classEnd(pat []rune) int {
	i := 1
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		i++
	}
	if i < len(pat) && pat[i] == ']' {
		i++ // a ']' immediately after the (optional) negation is literal
	}
	for i < len(pat) {
		if pat[i] == ']' {
			return i
		}
		i++
	}
	return -1
}

// matchClass evaluates a class body (without the brackets) against a
// single rune. A leading '!' or '^' negates the class.
func matchClass(body []rune, r rune) bool {
	negate := false
	if len(body) > 0 && (body[0] == '!' || body[0] == '^') {
		negate = true
		body = body[1:]
	}

	matched := false
	for i := 0; i < len(body); i++ {
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if lo <= r && r <= hi {
				matched = true
			}
			i += 2
			continue
		}
		if body[i] == r {
			matched = true
		}
	}

	return matched != negate
}
