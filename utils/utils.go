package utils

import (
	emoji "github.com/fzxiao233/Go-Emoji-Utils"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"math/rand"
	"os"
	"strings"
	"time"
)

func MapToStruct(mapVal map[string]interface{}, structVal interface{}) error {
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           structVal,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(mapVal)
}

func IsFileExist(aFilepath string) bool {
	if _, err := os.Stat(aFilepath); err == nil {
		return true
	}
	return false
}

func MakeDir(dirPath string) (ret string, err error) {
	err = MkdirAll(dirPath)
	if err != nil {
		log.Errorf("mkdir error: %s, err: %s", dirPath, err)
		return "", err
	}
	return dirPath, nil
}

// RemoveIllegalChar strips emoji and path-hostile characters from a media
// title so it is safe for filenames, captions and log lines.
func RemoveIllegalChar(Title string) string {
	illegalChars := []string{"|", "/", "\\", ":", "?"}
	Title = emoji.RemoveAll(Title)
	for _, char := range illegalChars {
		Title = strings.ReplaceAll(Title, char, "#")
	}
	return strings.TrimSpace(Title)
}

func RPartition(s string, sep string) (string, string, string) {
	parts := strings.SplitAfter(s, sep)
	if len(parts) == 1 {
		return "", "", parts[0]
	}
	return strings.Join(parts[0:len(parts)-1], ""), sep, parts[len(parts)-1]
}

func GenRandBuf(p []byte) (n int, err error) {
	r := rand.NewSource(time.Now().Unix())
	todo := len(p)
	offset := 0
	for {
		val := int64(r.Int63())
		for i := 0; i < 8; i++ {
			p[offset] = byte(val & 0xff)
			todo--
			if todo == 0 {
				return len(p), nil
			}
			offset++
			val >>= 8
		}
	}
}
