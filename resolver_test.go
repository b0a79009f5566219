package webauth

import "testing"

func TestResolveRedirectURI(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		platform string
		appID    string
		explicit string
		want     string
	}{
		{
			name:     "explicit override returned unchanged",
			domain:   "tenant.example.com",
			platform: "ios",
			appID:    "com.Example.MyApp",
			explicit: "http://localhost:3000/callback",
			want:     "http://localhost:3000/callback",
		},
		{
			name:     "synthesized with lower-cased scheme",
			domain:   "tenant.example.com",
			platform: "android",
			appID:    "com.Example.MyApp",
			want:     "com.example.myapp://tenant.example.com/android/com.Example.MyApp/callback",
		},
		{
			name:     "already lower-case identifier",
			domain:   "tenant.example.com",
			platform: "cli",
			appID:    "webauth",
			want:     "webauth://tenant.example.com/cli/webauth/callback",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRedirectURI(tc.domain, tc.platform, tc.appID, tc.explicit)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
