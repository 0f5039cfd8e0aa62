package congress

import (
	"fmt"

	"oncohub.org/internal/access"
)

// Stage is a congress event lifecycle status.
type Stage string

const (
	StagePlanning      Stage = "planning"
	StageOpenForTopics Stage = "open_for_topics"
	StageAgendaSet     Stage = "agenda_set"
	StageLive          Stage = "live"
	StagePostCongress  Stage = "post_congress"
	StageArchived      Stage = "archived"
)

var stages = []Stage{
	StagePlanning,
	StageOpenForTopics,
	StageAgendaSet,
	StageLive,
	StagePostCongress,
	StageArchived,
}

// Stages returns the lifecycle in order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

func (s Stage) index() int {
	for i, known := range stages {
		if known == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool { return s.index() >= 0 }

// Next returns the following stage; ok is false for archived or unknown
// stages.
func (s Stage) Next() (Stage, bool) {
	i := s.index()
	if i < 0 || i == len(stages)-1 {
		return "", false
	}
	return stages[i+1], true
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", &access.ValidationError{Msg: fmt.Sprintf("invalid congress stage %q", raw)}
	}
	return s, nil
}

// ValidateTransition allows exactly one step forward. Archived is terminal.
func ValidateTransition(from, to Stage) error {
	if !to.Valid() {
		return &access.ValidationError{Msg: fmt.Sprintf("invalid congress stage %q", to)}
	}
	if !from.Valid() {
		if to == StagePlanning {
			return nil
		}
		return &access.ValidationError{Msg: fmt.Sprintf("congress without a stage can only move to %s", StagePlanning)}
	}
	next, ok := from.Next()
	if !ok {
		return &access.ValidationError{Msg: fmt.Sprintf("congress is %s and cannot change stage", from)}
	}
	if to != next {
		return &access.ValidationError{Msg: fmt.Sprintf("cannot move congress from %s to %s: next stage is %s", from, to, next)}
	}
	return nil
}

// Section is a congress workspace navigation section.
type Section string

const (
	SectionOverview       Section = "overview"
	SectionWorkstreams    Section = "workstreams"
	SectionTimeline       Section = "timeline"
	SectionTasks          Section = "tasks"
	SectionRAID           Section = "raid"
	SectionApprovals      Section = "approvals"
	SectionLiveOps        Section = "live-ops"
	SectionFollowUp       Section = "follow-up"
	SectionTeam           Section = "team"
	SectionCommunications Section = "communications"
)

var sections = []Section{
	SectionOverview,
	SectionWorkstreams,
	SectionTimeline,
	SectionTasks,
	SectionRAID,
	SectionApprovals,
	SectionLiveOps,
	SectionFollowUp,
	SectionTeam,
	SectionCommunications,
}

var sectionLabels = map[Section]string{
	SectionOverview:       "Overview",
	SectionWorkstreams:    "Workstreams",
	SectionTimeline:       "Timeline",
	SectionTasks:          "Tasks",
	SectionRAID:           "RAID",
	SectionApprovals:      "Approvals",
	SectionLiveOps:        "Live Ops",
	SectionFollowUp:       "Follow-up",
	SectionTeam:           "Team",
	SectionCommunications: "Communications",
}

// AllSections returns the workspace sections in navigation order.
func AllSections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// emphasis lists the sections highlighted per stage. It only drives styling.
var emphasis = map[Stage][]Section{
	StagePlanning:      {SectionOverview, SectionWorkstreams, SectionTimeline, SectionTeam, SectionCommunications},
	StageOpenForTopics: {SectionOverview, SectionWorkstreams, SectionTimeline, SectionTeam, SectionCommunications},
	StageAgendaSet:     {SectionOverview, SectionWorkstreams, SectionTimeline, SectionTasks, SectionRAID, SectionTeam, SectionCommunications},
	StageLive:          {SectionLiveOps, SectionOverview, SectionTasks, SectionRAID, SectionWorkstreams, SectionTimeline, SectionTeam, SectionCommunications, SectionApprovals},
	StagePostCongress:  {SectionApprovals, SectionFollowUp, SectionTasks, SectionRAID, SectionOverview, SectionTeam, SectionCommunications},
	StageArchived:      {SectionOverview, SectionApprovals, SectionRAID, SectionTasks, SectionWorkstreams, SectionTimeline, SectionTeam, SectionCommunications},
}

// SectionVisible reports whether section is emphasized in stage. An empty or
// unknown stage emphasizes everything. The result is advisory: routes must
// stay reachable whatever it returns.
func SectionVisible(stage Stage, section Section) bool {
	list, ok := emphasis[stage]
	if !ok {
		return true
	}
	for _, s := range list {
		if s == section {
			return true
		}
	}
	return false
}

// SectionNav is one workspace tab.
type SectionNav struct {
	Section    Section `json:"section"`
	Label      string  `json:"label"`
	Emphasized bool    `json:"emphasized"`
}

// Sections returns every section for stage; none are ever dropped.
func Sections(stage Stage) []SectionNav {
	out := make([]SectionNav, 0, len(sections))
	for _, s := range sections {
		out = append(out, SectionNav{
			Section:    s,
			Label:      sectionLabels[s],
			Emphasized: SectionVisible(stage, s),
		})
	}
	return out
}
