/* *****************************************************************************
 * Nehonix XyPriss System CLI
 *
 * ACCESS RESTRICTIONS:
 * - This software is exclusively for use by Authorized Personnel of NEHONIX
 * - Intended for Internal Use only within NEHONIX operations
 * - No rights granted to unauthorized individuals or entities
 * - All modifications are works made for hire assigned to NEHONIX
 *
 * PROHIBITED ACTIVITIES:
 * - Copying, distributing, or sublicensing without written permission
 * - Reverse engineering, decompiling, or disassembling
 * - Creating derivative works without explicit authorization
 * - External use or commercial distribution outside NEHONIX
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 * For questions or permissions, contact:
 * NEHONIX Legal Department
 * Email: legal@nehonix.com
 * Website: www.nehonix.com
 ***************************************************************************** */

// Package cli builds the gateway's command tree: serve, validate, and
// version.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const banner = `
  ____                                _
 |  _ \ _   _ _ __   __ _  __ _  __ _| |_ ___
 | | | | | | | '_ \ / _' |/ _' |/ _' | __/ _ \
 | |_| | |_| | | | | (_| | (_| | (_| | ||  __/
 |____/ \__, |_| |_|\__,_|\__, |\__,_|\__\___|
        |___/             |___/
`

func printBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprint(os.Stderr, banner)
}

var rootCmd = &cobra.Command{
	Use:           "dynagate",
	Short:         "dynagate — lazy-start reverse proxy gateway",
	Long:          "dynagate fronts low-frequency services behind a reverse proxy, starting each one on its first request and stopping it after an idle window.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute parses os.Args and runs the matched subcommand.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return nil
}
