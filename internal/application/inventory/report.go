package inventory

import (
	"bufio"
	"fmt"
	"io"

	dominv "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
)

const (
	reportHeader = "\n--- Items Report ---\n"
	reportFooter = "--------------------\n\n"
)

// WriteReport renders the header, one "item -> qty" line per entry, and the footer.
func WriteReport(w io.Writer, snap dominv.Snapshot) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(reportHeader); err != nil {
		return err
	}
	for _, it := range snap {
		if _, err := fmt.Fprintf(bw, "%s -> %d\n", it.Name, it.Quantity); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString(reportFooter); err != nil {
		return err
	}
	return bw.Flush()
}
