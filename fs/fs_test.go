package appfs

import (
	"io/fs"
	"testing"
)

func TestFS(t *testing.T) {
	for _, name := range []string{
		"migrations/00001_init.sql",
		"templates/email/_base.gohtml",
		"templates/email/_base.txt",
		"templates/email/attendance_report.gohtml",
		"templates/email/attendance_report.txt",
	} {
		if _, err := fs.Stat(FS, name); err != nil {
			t.Errorf("%s is not embedded: %v", name, err)
		}
	}
}
