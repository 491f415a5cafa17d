package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

var oraSampleNumberPattern = regexp.MustCompile(`^.*_S(\d+)_L(\d+)_R\d+_\d+\.fastq\.ora$`)

// IsOraCompressed reports whether the readsets are ORA compressed, judged by
// the first row's read 1 file.
func IsOraCompressed(rows []model.FastqListRow) (bool, error) {
	if len(rows) == 0 {
		return false, requiredRows()
	}
	return strings.HasSuffix(rows[0].Read1FileURI, ".ora"), nil
}

// RenamingMap renames one copied file.
type RenamingMap struct {
	SourceURI      string `json:"sourceUri"`
	OutputFileName string `json:"outputFileName"`
}

// DataCopyPayload is the request for the execution service data copy
// service.
type DataCopyPayload struct {
	SourceURIList   []string      `json:"sourceUriList"`
	DestinationURI  string        `json:"destinationUri"`
	RenamingMapList []RenamingMap `json:"renamingMapList"`
}

// BuildDataCopyPayload copies every read file into
// <runFolderURI><rglb of the first row>/, renamed to the
// <rglb>_S<n>_L<lane>_R<read>_001.fastq.gz convention the run folder
// needs. The sample number comes from the source file name and defaults
// to 1.
func BuildDataCopyPayload(rows []model.FastqListRow, runFolderURI string) (*DataCopyPayload, error) {
	if len(rows) == 0 {
		return nil, requiredRows()
	}
	if runFolderURI == "" {
		return nil, requiredField("runFolderUri")
	}

	payload := &DataCopyPayload{
		SourceURIList:   []string{},
		DestinationURI:  runFolderURI + rows[0].RGLB + "/",
		RenamingMapList: []RenamingMap{},
	}
	for _, row := range rows {
		for i, uri := range row.FileURIs() {
			if uri == "" {
				return nil, model.NewValidationError(fmt.Sprintf("fastq list row %q has no read %d file", row.RGID, i+1))
			}
			payload.SourceURIList = append(payload.SourceURIList, uri)
			payload.RenamingMapList = append(payload.RenamingMapList, RenamingMap{
				SourceURI:      uri,
				OutputFileName: gzipFileName(row, i+1, sampleNumber(uri)),
			})
		}
	}
	return payload, nil
}

// sampleNumber extracts n from ..._S<n>_L<lane>_R<read>_<chunk>.fastq.ora.
func sampleNumber(uri string) int {
	m := oraSampleNumberPattern.FindStringSubmatch(uri)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return n
}

func gzipFileName(row model.FastqListRow, read, sample int) string {
	return fmt.Sprintf("%s_S%d_L%03d_R%d_001.fastq.gz", row.RGLB, sample, row.Lane, read)
}

func requiredRows() error {
	return model.NewValidationError("fastqListRows is required and must be a non-empty list",
		model.FieldError{Field: "fastqListRows", Message: "required"})
}
