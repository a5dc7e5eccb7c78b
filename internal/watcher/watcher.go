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

// Package watcher follows the gateway's config file for changes and invokes
// a reload callback, so adding or editing a service does not require a
// restart.
package watcher

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher wraps an fsnotify.Watcher scoped to a single config file.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	path    string
}

// NewConfigWatcher builds a watcher for path. Watch must be called to start
// delivering events.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ConfigWatcher{watcher: w, path: path}, nil
}

// Watch begins following the config file, invoking onChange once per
// write/create event observed. Editors that replace-via-rename (vim, many
// IDEs) are covered by also re-adding the watch on a Remove/Rename event,
// since fsnotify on Linux drops the watch once the original inode is gone.
func (w *ConfigWatcher) Watch(onChange func()) error {
	if err := w.watcher.Add(w.path); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				switch {
				case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
					onChange()
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					// Re-add in case the editor replaced the file via a
					// rename-based save; ignore failures (file may be gone
					// for real, in which case the next real write re-adds it).
					_ = w.watcher.Add(w.path)
					onChange()
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[watcher] config watch error: %v", err)
			}
		}
	}()

	return nil
}

// Close releases the underlying inotify/kqueue handle.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}
