package utils

import (
	"context"

	_ "github.com/rclone/rclone/backend/all"
	"github.com/rclone/rclone/cmd"
	"github.com/rclone/rclone/fs/operations"
	"github.com/rclone/rclone/fs/sync"
)

// File operations go through rclone so dirs and archive targets may be
// local paths or any configured remote ("gdrive:clips").

func MkdirAll(path string) error {
	fdst := cmd.NewFsDir([]string{path})
	return operations.Mkdir(context.Background(), fdst, "")
}

// MoveFiles moves src into dst. A file src keeps its base name under
// dst; a directory src is moved recursively.
func MoveFiles(src string, dst string) error {
	fsrc, srcFileName, fdst := cmd.NewFsSrcFileDst([]string{src, dst})
	if srcFileName == "" {
		return sync.MoveDir(context.Background(), fdst, fsrc, false, false)
	}
	return operations.MoveFile(context.Background(), fdst, fsrc, srcFileName, srcFileName)
}
