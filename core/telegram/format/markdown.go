// Package format holds outbound text formatting helpers.
package format

import "strings"

var mdV1Replacer = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMD escapes the characters Telegram Markdown (legacy) treats as
// markup so user-supplied text renders literally.
func EscapeMD(text string) string {
	return mdV1Replacer.Replace(text)
}
