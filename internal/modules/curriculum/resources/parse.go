package resources

import (
	"regexp"
	"strings"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
)

var (
	tokenSplitRe = regexp.MustCompile(`[;,]`)
	// R<n> followed by an optional chapter or lecture marker and free text.
	referenceRe = regexp.MustCompile(`^(R\d+)\s*(?:([Cc]h(?:apter)?\.?\s*\d+)|([Ll]ec(?:ture)?\.?\s*\d+))?\s*(.*)$`)
	bareIDRe    = regexp.MustCompile(`(?i)R\d+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// ParseReferences parses a free-text resources cell such as "R1 Ch1; R2 Lec5".
// Tokens without any R<digits> id are dropped.
func ParseReferences(text string) []domain.ResourceReference {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []domain.ResourceReference
	for _, part := range tokenSplitRe.Split(text, -1) {
		if ref, ok := ParseToken(part); ok {
			out = append(out, ref)
		}
	}
	return out
}

// ParseToken parses a single reference token.
func ParseToken(token string) (domain.ResourceReference, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ResourceReference{}, false
	}
	if m := referenceRe.FindStringSubmatch(token); m != nil {
		return domain.ResourceReference{
			ResourceID: strings.ToUpper(m[1]),
			Chapter:    spaceRe.ReplaceAllString(m[2], ""),
			LectureRef: spaceRe.ReplaceAllString(m[3], ""),
			ExtraInfo:  strings.TrimSpace(m[4]),
		}, true
	}
	if id := bareIDRe.FindString(token); id != "" {
		return domain.ResourceReference{
			ResourceID: strings.ToUpper(id),
			ExtraInfo:  token,
		}, true
	}
	return domain.ResourceReference{}, false
}
