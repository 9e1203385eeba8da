package validation

import (
	"testing"
)

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple name", "test-executor", false},
		{"underscore", "fix_auth_bug", false},
		{"empty", "", true},
		{"path traversal attempt", "../../../etc/passwd", true},
		{"contains slash", "foo/bar", true},
		{"contains space", "foo bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionName(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid", "myproject-test-executor", false},
		{"empty", "", true},
		{"contains space", "myproject test-executor", true},
		{"contains slash", "myproject/test-executor", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourcePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"absolute path", "/home/user/project", false},
		{"empty", "", true},
		{"relative path", "project", true},
		{"traversal", "/home/user/../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourcePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSourcePath() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"simple path", "foo/bar", "foo/bar", false},
		{"single component", "filename.txt", "filename.txt", false},
		{"with underscore", "my_file.txt", "my_file.txt", false},
		{"with dash", "my-file.txt", "my-file.txt", false},
		{"trailing slash", "foo/bar/", "foo/bar/", false},
		{"empty", "", "", true},
		{"path traversal", "../../../etc/passwd", "", true},
		{"path traversal in middle", "foo/../../../etc/passwd", "", true},
		{"absolute path", "/etc/passwd", "", true},
		{"unsafe chars semicolon", "foo;rm -rf /", "", true},
		{"unsafe chars space", "foo bar", "", true},
		{"unsafe chars ampersand", "foo&bar", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizePath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizePath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateContainerID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid short ID", "abc123def456", false},
		{"valid long ID", "abc123def456abc123def456abc123def456abc123def456abc123def456abc1", false},
		{"valid uppercase", "ABC123DEF456", false},
		{"empty", "", true},
		{"too short", "abc123", true},
		{"too long", "abc123def456abc123def456abc123def456abc123def456abc123def456abc12345", true},
		{"invalid chars", "abc123def456xyz!", true},
		{"invalid chars space", "abc123 def456", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContainerID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContainerID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
