package utils

import (
	"bytes"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// ExecShellEx runs an external tool and returns its stdout and stderr
// separately together with the exit error. When showOutput is set the
// tool's output is additionally teed to the process streams.
func ExecShellEx(logger *log.Entry, showOutput bool, name string, arg ...string) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	co := exec.Command(name, arg...)

	var stdout io.Writer = &stdoutBuf
	var stderr io.Writer = &stderrBuf
	if showOutput {
		stdout = io.MultiWriter(os.Stdout, &stdoutBuf)
		stderr = io.MultiWriter(os.Stderr, &stderrBuf)
	}
	co.Stdout = stdout
	co.Stderr = stderr

	logger.Debugf("Exec: %s %v", name, arg)
	err := co.Run()
	if err != nil {
		logger.Debugf("Exec %s exited: %v, stderr: %s", name, err, stderrBuf.String())
	}
	return stdoutBuf.String(), stderrBuf.String(), err
}
