package action

import "diagramd/internal/domain"

// Wire kinds of the built-in actions
const (
	KindRequestModel      = "requestModel"
	KindSetModel          = "setModel"
	KindUpdateModel       = "updateModel"
	KindRequestBounds     = "requestBounds"
	KindComputedBounds    = "computedBounds"
	KindRequestPopupModel = "requestPopupModel"
	KindSetPopupModel     = "setPopupModel"
	KindSelect            = "elementSelected"
	KindSelectAll         = "allSelected"
	KindGetSelection      = "getSelection"
	KindSelectionResult   = "selectionResult"
	KindCollapseExpand    = "collapseExpand"
	KindCollapseExpandAll = "collapseExpandAll"
	KindOpen              = "open"
	KindLayout            = "layout"
	KindReject            = "rejectRequest"
	KindServerStatus      = "serverStatus"
	KindFitToScreen       = "fit"
)

// RequestModelAction is sent by the client to obtain the current model
type RequestModelAction struct {
	Request
	Options *Options `json:"options,omitempty"`
}

func (*RequestModelAction) Kind() string { return KindRequestModel }

// SetModelAction replaces the client's model
type SetModelAction struct {
	Response
	NewRoot *domain.Element `json:"newRoot"`
}

func (*SetModelAction) Kind() string { return KindSetModel }

// UpdateModelAction updates the client's model, animating the difference
type UpdateModelAction struct {
	NewRoot *domain.Element `json:"newRoot"`
	Animate *bool           `json:"animate,omitempty"`
}

func (*UpdateModelAction) Kind() string { return KindUpdateModel }

// RequestBoundsAction asks the client to compute the bounds of a model
type RequestBoundsAction struct {
	Request
	NewRoot *domain.Element `json:"newRoot"`
}

func (*RequestBoundsAction) Kind() string { return KindRequestBounds }

// ComputedBoundsAction carries client-computed geometry for a model revision
type ComputedBoundsAction struct {
	Response
	Bounds     []domain.ElementAndBounds    `json:"bounds"`
	Alignments []domain.ElementAndAlignment `json:"alignments,omitempty"`
	Revision   *int                         `json:"revision,omitempty"`
}

func (*ComputedBoundsAction) Kind() string { return KindComputedBounds }

// RequestPopupModelAction asks for a hover popup for one element
type RequestPopupModelAction struct {
	Request
	ElementID string        `json:"elementId"`
	Bounds    domain.Bounds `json:"bounds"`
}

func (*RequestPopupModelAction) Kind() string { return KindRequestPopupModel }

// SetPopupModelAction answers a popup request
type SetPopupModelAction struct {
	Response
	NewRoot *domain.Element `json:"newRoot"`
}

func (*SetPopupModelAction) Kind() string { return KindSetPopupModel }

// SelectAction reports a change of the client's selection
type SelectAction struct {
	SelectedElementsIDs   []string `json:"selectedElementsIDs,omitempty"`
	DeselectedElementsIDs []string `json:"deselectedElementsIDs,omitempty"`
}

func (*SelectAction) Kind() string { return KindSelect }

// SelectAllAction selects or deselects every element
type SelectAllAction struct {
	Select bool `json:"select"`
}

func (*SelectAllAction) Kind() string { return KindSelectAll }

// GetSelectionAction asks the client for its current selection
type GetSelectionAction struct {
	Request
}

func (*GetSelectionAction) Kind() string { return KindGetSelection }

// SelectionResult answers a GetSelectionAction
type SelectionResult struct {
	Response
	SelectedElementsIDs []string `json:"selectedElementsIDs"`
}

func (*SelectionResult) Kind() string { return KindSelectionResult }

// CollapseExpandAction expands and collapses elements
type CollapseExpandAction struct {
	ExpandIDs   []string `json:"expandIds,omitempty"`
	CollapseIDs []string `json:"collapseIds,omitempty"`
}

func (*CollapseExpandAction) Kind() string { return KindCollapseExpand }

// CollapseExpandAllAction expands or collapses every element
type CollapseExpandAllAction struct {
	Expand bool `json:"expand"`
}

func (*CollapseExpandAllAction) Kind() string { return KindCollapseExpandAll }

// OpenAction reports that the user opened an element, e.g. by double click
type OpenAction struct {
	ElementID string `json:"elementId"`
}

func (*OpenAction) Kind() string { return KindOpen }

// LayoutAction asks the server to lay out the model again
type LayoutAction struct {
	LayoutType string   `json:"layoutType,omitempty"`
	ElementIDs []string `json:"elementIds,omitempty"`
}

func (*LayoutAction) Kind() string { return KindLayout }

// LayoutSelection returns the ids the layout is restricted to
func (a *LayoutAction) LayoutSelection() []string { return a.ElementIDs }

// RejectAction is the failure answer to a request
type RejectAction struct {
	Response
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (*RejectAction) Kind() string { return KindReject }

// NewReject creates a rejection of the request with the given id
func NewReject(requestID, message, detail string) *RejectAction {
	return &RejectAction{
		Response: Response{ResponseID: requestID},
		Message:  message,
		Detail:   detail,
	}
}

// Severity levels of a ServerStatusAction
const (
	SeverityFatal   = "FATAL"
	SeverityError   = "ERROR"
	SeverityWarning = "WARNING"
	SeverityInfo    = "INFO"
	SeverityOK      = "OK"
)

// ServerStatusAction tells the client about the server's state
type ServerStatusAction struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (*ServerStatusAction) Kind() string { return KindServerStatus }

// FitToScreenAction moves the client viewport to show the given elements
type FitToScreenAction struct {
	ElementIDs []string `json:"elementIds"`
	Padding    *float64 `json:"padding,omitempty"`
	MaxZoom    *float64 `json:"maxZoom,omitempty"`
	Animate    bool     `json:"animate"`
}

func (*FitToScreenAction) Kind() string { return KindFitToScreen }
