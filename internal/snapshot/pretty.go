package snapshot

import "regexp"

var (
	adjacentTags   = regexp.MustCompile(`><`)
	blockCloseTags = regexp.MustCompile(`(?i)(</(div|p|section|article|header|footer|nav|aside|main|head|body|html|ul|ol|li|h[1-6]|meta|link|script|style)>)\n?`)
	metaLinkTags   = regexp.MustCompile(`(?i)(<(meta|link)[^>]*>)\n?`)
)

// PrettyPrint puts adjacent tags on separate lines and adds a line break
// after block-level closing tags and after <meta> and <link> tags, so two
// snapshots of one page diff line by line. A tag already followed by a
// line break keeps exactly one. Text content is not reflowed.
func PrettyPrint(html []byte) []byte {
	out := adjacentTags.ReplaceAll(html, []byte(">\n<"))
	out = blockCloseTags.ReplaceAll(out, []byte("${1}\n"))
	out = metaLinkTags.ReplaceAll(out, []byte("${1}\n"))
	return out
}
