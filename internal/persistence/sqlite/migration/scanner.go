package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Pattern matches: {version}_{description}.sql
var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// ScanMigrations reads every migration file in dir of fsys, ordered by version.
// Non-SQL entries are ignored.
func ScanMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, NewMigrationError("", dir, "read directory", err)
	}

	var migrations []Migration
	versions := make(map[string]string) // version -> filename for duplicate detection

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		m := migrationFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename",
				fmt.Errorf("%w: expected {version}_{description}.sql", ErrInvalidMigrationFile))
		}
		if existing, dup := versions[m[1]]; dup {
			return nil, NewMigrationError(m[1], entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, m[1], existing, entry.Name()))
		}
		versions[m[1]] = entry.Name()

		filePath := path.Join(dir, entry.Name())
		content, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil, NewMigrationError(m[1], filePath, "read file", err)
		}
		sql := strings.TrimSpace(string(content))
		if sql == "" {
			return nil, NewMigrationError(m[1], filePath, "parse file",
				fmt.Errorf("%w: file is empty", ErrInvalidMigrationFile))
		}

		migrations = append(migrations, Migration{
			Version:     m[1],
			Description: strings.ReplaceAll(m[2], "_", " "),
			SQL:         sql,
			FilePath:    filePath,
			Checksum:    checksum(sql),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})
	return migrations, nil
}

func checksum(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
