package domain

type ConversationKind string

const (
	ConversationDirect   ConversationKind = "direct"
	ConversationGroup    ConversationKind = "group"
	ConversationActivity ConversationKind = "activity"
)

func (k ConversationKind) Valid() bool {
	switch k {
	case ConversationDirect, ConversationGroup, ConversationActivity:
		return true
	}
	return false
}

type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageImage    MessageKind = "image"
	MessageLocation MessageKind = "location"
	MessageSystem   MessageKind = "system"
	MessageProposal MessageKind = "proposal"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MessageText, MessageImage, MessageLocation, MessageSystem, MessageProposal:
		return true
	}
	return false
}

type NotificationKind string

const (
	NotificationGeneral  NotificationKind = "general"
	NotificationActivity NotificationKind = "activity"
	NotificationMessage  NotificationKind = "message"
	NotificationBooking  NotificationKind = "booking"
	NotificationSystem   NotificationKind = "system"
)
