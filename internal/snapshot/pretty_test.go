package snapshot

import "testing"

// TestPrettyPrint tests line break insertion.
func TestPrettyPrint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adjacent tags are split",
			in:   "<div><span>x</span></div>",
			want: "<div>\n<span>x</span>\n</div>\n",
		},
		{
			name: "meta and link tags end lines",
			in:   `<head><meta charset="utf-8"><link rel="icon" href="/f.ico"></head>`,
			want: "<head>\n<meta charset=\"utf-8\">\n<link rel=\"icon\" href=\"/f.ico\">\n</head>\n",
		},
		{
			name: "block close before a tag gets one line break",
			in:   "<div>a</div><p>b</p>",
			want: "<div>a</div>\n<p>b</p>\n",
		},
		{
			name: "existing line breaks are kept single",
			in:   "<ul><li>a</li>\n<li>b</li>\n\n</ul>",
			want: "<ul>\n<li>a</li>\n<li>b</li>\n\n</ul>\n",
		},
		{
			name: "closing tags are case insensitive",
			in:   "<P>a</P>text",
			want: "<P>a</P>\ntext",
		},
		{
			name: "text is left alone",
			in:   "plain text only",
			want: "plain text only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := string(PrettyPrint([]byte(tt.in))); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
