// compileinfoprint is imported for the side effect of printing the compileinfo
// and the compiled-in module versions to os.StdErr
package compileinfoprint

import "github.com/carbocation/scqc/compileinfo"

func init() {
	compileinfo.PrintVersionsToStdErr()
}
