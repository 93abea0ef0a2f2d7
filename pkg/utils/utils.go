// Package utils provides shared helpers for content formatting.
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ContentWithLineNumber formats a slice of lines by prefixing each with its
// line number starting from the given offset, padded for alignment.
func ContentWithLineNumber(lines []string, offset int) string {
	var sb strings.Builder
	maxLineWidth := 1

	if len(lines) > 0 {
		maxLineNum := offset + len(lines) - 1
		maxLineWidth = len(strconv.Itoa(maxLineNum))
	}

	for i, line := range lines {
		lineNum := offset + i
		sb.WriteString(fmt.Sprintf("%*d: %s\n", maxLineWidth, lineNum, line))
	}

	return sb.String()
}

// IsBinaryFile checks if a file is binary by reading the first 512 bytes and
// looking for NULL bytes.
func IsBinaryFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return false
	}

	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}

	return false
}
