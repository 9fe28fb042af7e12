package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/talk"
)

// EndsMerge finalizes a git merge request once its daemon has ended:
// success is the daemon's exit code being zero. The daemon is removed in
// the same edit set.
type EndsMerge struct{}

// Execute implements Agent.
func (EndsMerge) Execute(_ context.Context, t talk.Talk) error {
	doc, err := t.Read()
	if err != nil {
		return err
	}
	logger := talklog.ForTalk(t.Name(), "ends-merge")
	if !doc.Exists("/talk/merge-request-git[not(success)]") {
		logger.Debugw("no pending git merge request")
		return nil
	}
	if !doc.Exists("/talk/daemon[ended]") {
		logger.Debugw("merge daemon has not ended")
		return nil
	}
	text, ok := doc.Value("/talk/daemon/code/text()")
	if !ok {
		return fmt.Errorf("ended daemon of talk %q has no code", t.Name())
	}
	code, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("ended daemon of talk %q has invalid code %q", t.Name(), text)
	}
	success := code == 0
	dirs := new(talk.Directives).
		XPath("/talk/merge-request-git[not(success)]").
		Add("success").Set(strconv.FormatBool(success)).
		XPath("/talk/daemon").Remove()
	if err := t.Modify(dirs, fmt.Sprintf("merge finished, success=%t", success)); err != nil {
		return err
	}
	logger.Infow("merge finished", "success", success, "code", code)
	return nil
}
