package config

import (
	"github.com/corescan/jscan/internal/classfile"
	"github.com/corescan/jscan/internal/pathfilter"
)

// BuildMatcher translates FilterConfig's seed lists into a
// pathfilter.ClasspathMatcher, compiling any glob-bearing class-name
// entries with AddGlob and everything else with AddLiteral.
func (c *Config) BuildMatcher() (*pathfilter.ClasspathMatcher, error) {
	m := pathfilter.NewClasspathMatcher()

	fill := func(l *pathfilter.List, entries []string, globsAllowed bool) error {
		for _, e := range entries {
			if globsAllowed && pathfilter.LooksLikeGlob(e) {
				if err := l.AddGlob(e); err != nil {
					return err
				}
				continue
			}
			l.AddLiteral(e)
		}
		return nil
	}

	if err := fill(m.Packages.Accept, c.Filter.AcceptPackages, false); err != nil {
		return nil, err
	}
	if err := fill(m.Packages.Reject, c.Filter.RejectPackages, false); err != nil {
		return nil, err
	}
	if err := fill(m.Paths.Accept, c.Filter.AcceptPaths, false); err != nil {
		return nil, err
	}
	if err := fill(m.Paths.Reject, c.Filter.RejectPaths, false); err != nil {
		return nil, err
	}
	if err := fill(m.Classes.Accept, c.Filter.AcceptClasses, true); err != nil {
		return nil, err
	}
	if err := fill(m.Classes.Reject, c.Filter.RejectClasses, true); err != nil {
		return nil, err
	}
	if err := fill(m.Jars.Accept, c.Filter.AcceptJars, true); err != nil {
		return nil, err
	}
	if err := fill(m.Jars.Reject, c.Filter.RejectJars, true); err != nil {
		return nil, err
	}

	return m, nil
}

// DecoderOptions translates DecoderConfig into classfile.Options.
func (c *Config) DecoderOptions() classfile.Options {
	return classfile.Options{
		EnableFieldInfo:                    c.Decoder.EnableFieldInfo,
		EnableMethodInfo:                   c.Decoder.EnableMethodInfo,
		EnableAnnotationInfo:               c.Decoder.EnableAnnotationInfo,
		EnableStaticFinalConstants:         c.Decoder.EnableStaticFinalConstants,
		IncludeRuntimeInvisibleAnnotations: c.Decoder.IncludeRuntimeInvisibleAnnotations,
		IgnoreVisibilityFields:             c.Decoder.IgnoreVisibilityFields,
		IgnoreVisibilityMethods:            c.Decoder.IgnoreVisibilityMethods,
	}
}
