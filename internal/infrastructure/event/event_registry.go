package event

import "github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"

// RegisterFormEvents registers every form event type with the serializer
func RegisterFormEvents(serializer *EventSerializer) {
	serializer.Register(form.EventTypeFormRecordCreated, &form.FormRecordCreatedEvent{})
	serializer.Register(form.EventTypeFormStepSubmitted, &form.FormStepSubmittedEvent{})
	serializer.Register(form.EventTypeFormDraftSaved, &form.FormDraftSavedEvent{})
	serializer.Register(form.EventTypeFormCompleted, &form.FormCompletedEvent{})
	serializer.Register(form.EventTypeFormPaymentStatusChanged, &form.FormPaymentStatusChangedEvent{})
	serializer.Register(form.EventTypeFormActivationChanged, &form.FormActivationChangedEvent{})
	serializer.Register(form.EventTypeFormCommentAdded, &form.FormCommentAddedEvent{})
	serializer.Register(form.EventTypeFormRecordDeleted, &form.FormRecordDeletedEvent{})
}
