package bot

import (
	"bufio"
	"errors"
	"os"
)

// TailLastNLines returns up to n trailing lines of the file at path. A
// missing file has no lines.
func TailLastNLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	for s.Scan() {
		ring[count%n] = s.Text()
		count++
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	if count <= n {
		return ring[:count], nil
	}
	out := make([]string, 0, n)
	start := count % n
	out = append(out, ring[start:]...)
	return append(out, ring[:start]...), nil
}
