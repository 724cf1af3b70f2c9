package layout

// Action is a typed layout mutation, applied with Reduce.
type Action interface {
	// Name identifies the action in logs and metrics.
	Name() string
	apply(l Layout) Result
}

type (
	AddComponentAction struct {
		Section string
		Type    string
	}

	RemoveComponentAction struct {
		Section string
		ID      string
	}

	PatchComponentDataAction struct {
		Section string
		ID      string
		Data    Data
	}

	MoveComponentAction struct {
		Section   string
		ID        string
		Direction Direction
	}
)

// Result is the new layout state along with what happened to it.
type Result struct {
	Layout    Layout
	Outcome   Outcome
	Component *Component // the touched component, if any
}

// Reduce applies the action to l. It never fails: unmet targets yield a no-op Outcome.
func Reduce(l Layout, a Action) Result {
	if a == nil {
		return Result{Layout: l, Outcome: NoOpNotFound}
	}
	return a.apply(l)
}

func (AddComponentAction) Name() string { return "add_component" }

func (a AddComponentAction) apply(l Layout) Result {
	nl, comp := AddComponent(l, a.Section, a.Type)
	return Result{Layout: nl, Outcome: Applied, Component: &comp}
}

func (RemoveComponentAction) Name() string { return "remove_component" }

func (a RemoveComponentAction) apply(l Layout) Result {
	nl, out := RemoveComponent(l, a.Section, a.ID)
	return Result{Layout: nl, Outcome: out}
}

func (PatchComponentDataAction) Name() string { return "patch_component_data" }

func (a PatchComponentDataAction) apply(l Layout) Result {
	nl, out := PatchComponentData(l, a.Section, a.ID, a.Data)
	return Result{Layout: nl, Outcome: out, Component: touched(nl, a.Section, a.ID)}
}

func (MoveComponentAction) Name() string { return "move_component" }

func (a MoveComponentAction) apply(l Layout) Result {
	nl, out := MoveComponent(l, a.Section, a.ID, a.Direction)
	return Result{Layout: nl, Outcome: out, Component: touched(nl, a.Section, a.ID)}
}

func touched(l Layout, sectionType, id string) *Component {
	if comp, ok := l.Component(sectionType, id); ok {
		return &comp
	}
	return nil
}
