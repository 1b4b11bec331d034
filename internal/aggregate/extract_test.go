package aggregate

import "testing"

func TestExtractFailure(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Failure
	}{
		{
			name: "url with trailing slash",
			in:   "https://www.example.com/registry/packages/aws/api-docs/ has no broken links",
			want: Failure{URL: "https://www.example.com/registry/packages/aws/api-docs/", Description: "has no broken links", Matched: true},
		},
		{
			name: "last path segment without slash is description",
			in:   "https://a.com/x failed assertion",
			want: Failure{URL: "https://a.com/", Description: "x failed assertion", Matched: true},
		},
		{
			name: "closing parenthesis stops the url",
			in:   "https://example.com/docs/page) see /more",
			want: Failure{URL: "https://example.com/docs/", Description: "page) see /more", Matched: true},
		},
		{
			name: "slash inside parentheses extends the url",
			in:   "https://example.com/docs/page (desc text/more)",
			want: Failure{URL: "https://example.com/docs/page (desc text/", Description: "more)", Matched: true},
		},
		{
			name: "http scheme",
			in:   "http://localhost:1313/registry/ renders",
			want: Failure{URL: "http://localhost:1313/registry/", Description: "renders", Matched: true},
		},
		{
			name: "no leading url",
			in:   "renders https://example.com/docs/",
			want: Failure{URL: UnmatchedPage, Description: "renders https://example.com/docs/"},
		},
		{
			name: "empty name",
			in:   "",
			want: Failure{URL: UnmatchedPage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFailure(tt.in); got != tt.want {
				t.Errorf("ExtractFailure(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
