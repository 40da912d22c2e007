package signature

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var versionRegex = regexp.MustCompile(`=\s*(\d+\.\d+\.\d+(?:-[a-zA-Z0-9.-]+)?)`)

// PackageList maps an IOC package name to its known-bad versions. An empty
// version list means every version.
type PackageList map[string][]string

// Names returns the package names of l.
func (l PackageList) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	return names
}

// LoadPackageList reads an IOC package list from path.
func LoadPackageList(path string) (PackageList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package list: %w", err)
	}
	return ParsePackageList(bytes.NewReader(data))
}

// ParsePackageList accepts either a Wiz-style CSV export (header
// "Package,Version", versions written as "= 1.2.3 || = 1.2.4") or a plain
// list with one "name" or "name@version" per line.
func ParsePackageList(r io.Reader) (PackageList, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len("Package,"))
	if err == nil && string(head) == "Package," {
		return parseIOCCSV(br)
	}
	return parsePlainList(br)
}

func parseIOCCSV(r io.Reader) (PackageList, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 2 || header[0] != "Package" || header[1] != "Version" {
		return nil, fmt.Errorf("unexpected CSV format")
	}

	list := make(PackageList)
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 1 {
			continue
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		if _, ok := list[name]; !ok {
			list[name] = nil
		}
		if len(record) >= 2 && record[1] != "" {
			for _, match := range versionRegex.FindAllStringSubmatch(record[1], -1) {
				list[name] = append(list[name], strings.TrimSpace(match[1]))
			}
		}
	}
	return list, nil
}

func parsePlainList(r io.Reader) (PackageList, error) {
	list := make(PackageList)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, version := SplitPackageSpec(line)
		if _, ok := list[name]; !ok {
			list[name] = nil
		}
		if version != "" {
			list[name] = append(list[name], version)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read package list: %w", err)
	}
	return list, nil
}

// SplitPackageSpec splits "name@version" into its parts. Scoped names keep
// their leading "@".
func SplitPackageSpec(spec string) (name, version string) {
	if idx := strings.LastIndex(spec, "@"); idx > 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, ""
}
