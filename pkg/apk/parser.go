package apk

import (
	"sort"

	apperrors "github.com/ndn8144/AdbInstallerApp-sub001/internal/errors"
	"github.com/ndn8144/AdbInstallerApp-sub001/internal/logging"
)

// Parser extracts metadata from an APK file.
type Parser interface {
	ParseAPK(path string) (*Info, error)
	GetParserInfo() ParserInfo
	CanParse(path string) bool
}

// ParserInfo describes a parser and its standing in the chain.
type ParserInfo struct {
	Name         string
	Capabilities []string
	Available    bool
	Priority     int // lower runs first
}

// Chain tries parsers in priority order until one succeeds.
type Chain struct {
	parsers []Parser
}

// NewChain builds a chain from the given parsers, ordered by priority.
func NewChain(parsers ...Parser) *Chain {
	c := &Chain{parsers: parsers}
	sort.SliceStable(c.parsers, func(i, j int) bool {
		return c.parsers[i].GetParserInfo().Priority < c.parsers[j].GetParserInfo().Priority
	})
	return c
}

// DefaultChain returns the standard lineup: the androidbinary decoder
// first, aapt as fallback when it is installed.
func DefaultChain() *Chain {
	return NewChain(NewBinaryParser(), NewAAPTParser())
}

// ParseAPK runs the chain against one file. The returned Info records
// which parser produced it.
func (c *Chain) ParseAPK(path string) (*Info, error) {
	var lastErr error
	for _, parser := range c.parsers {
		pi := parser.GetParserInfo()
		if !pi.Available || !parser.CanParse(path) {
			continue
		}
		info, err := parser.ParseAPK(path)
		if err != nil {
			logging.Logger.Debug().Str("parser", pi.Name).Str("file", path).Err(err).Msg("parser failed")
			lastErr = err
			continue
		}
		info.ParsedBy = pi.Name
		return info, nil
	}
	if lastErr != nil {
		return nil, apperrors.WrapError(lastErr, apperrors.ErrorTypeParsing, "PARSE_FAILED",
			"all available parsers failed").
			WithContext("file", path).
			WithSuggestion("Install aapt2 to enable the fallback parser (see 'adbinstaller doctor')")
	}
	return nil, apperrors.NewParsingError("NO_PARSER", "no parser can handle this file").
		WithContext("file", path)
}

// Parsers reports the chain members for diagnostics.
func (c *Chain) Parsers() []ParserInfo {
	infos := make([]ParserInfo, 0, len(c.parsers))
	for _, p := range c.parsers {
		infos = append(infos, p.GetParserInfo())
	}
	return infos
}
