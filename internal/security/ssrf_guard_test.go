package security

import (
	"testing"
	"time"
)

func TestValidateEndpoint(t *testing.T) {
	guard := NewEndpointGuard()

	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{
			name:    "正常なプッシュエンドポイント",
			rawURL:  "https://fcm.googleapis.com/fcm/send/abc123",
			wantErr: false,
		},
		{
			name:    "Mozillaのプッシュエンドポイント",
			rawURL:  "https://updates.push.services.mozilla.com/wpush/v2/xyz",
			wantErr: false,
		},
		{
			name:    "httpスキームは拒否",
			rawURL:  "http://example.com/push",
			wantErr: true,
		},
		{
			name:    "ftpスキームは拒否",
			rawURL:  "ftp://example.com/push",
			wantErr: true,
		},
		{
			name:    "javascriptスキームは拒否",
			rawURL:  "javascript:alert(1)",
			wantErr: true,
		},
		{
			name:    "空文字列は拒否",
			rawURL:  "",
			wantErr: true,
		},
		{
			name:    "ホストなしは拒否",
			rawURL:  "https:///push",
			wantErr: true,
		},
		{
			name:    "localhostは拒否",
			rawURL:  "https://localhost/push",
			wantErr: true,
		},
		{
			name:    "LOCALHOST大文字も拒否",
			rawURL:  "https://LOCALHOST/push",
			wantErr: true,
		},
		{
			name:    "ループバックIPは拒否",
			rawURL:  "https://127.0.0.1/push",
			wantErr: true,
		},
		{
			name:    "プライベートIP 10系は拒否",
			rawURL:  "https://10.0.0.5/push",
			wantErr: true,
		},
		{
			name:    "プライベートIP 172系は拒否",
			rawURL:  "https://172.16.0.1/push",
			wantErr: true,
		},
		{
			name:    "プライベートIP 192.168系は拒否",
			rawURL:  "https://192.168.1.1/push",
			wantErr: true,
		},
		{
			name:    "クラウドメタデータIPは拒否",
			rawURL:  "https://169.254.169.254/latest/meta-data/",
			wantErr: true,
		},
		{
			name:    "IPv6ループバックは拒否",
			rawURL:  "https://[::1]/push",
			wantErr: true,
		},
		{
			name:    "パブリックIPは許可",
			rawURL:  "https://93.184.216.34/push",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateEndpoint(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.rawURL, err, tt.wantErr)
			}
		})
	}
}

func TestNewSafeClient(t *testing.T) {
	guard := NewEndpointGuard()
	client := guard.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}
