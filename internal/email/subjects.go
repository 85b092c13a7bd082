package email

const (
	subjectBookingAlertFmt = "Nueva reserva de %s"
	subjectCancellationFmt = "Tu hora en %s fue cancelada"
	subjectReminderFmt     = "Recordatorio: tu hora en %s"
)
