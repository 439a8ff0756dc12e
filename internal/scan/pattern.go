package scan

import "regexp"

func compileRegexp(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}
