package enums

// NotificationType labels in-app notification rows.
type NotificationType string

const (
	NotificationOrderConfirmed     NotificationType = "order_confirmed"
	NotificationOrderStatusChanged NotificationType = "order_status_changed"
	NotificationOrderShipped       NotificationType = "order_shipped"
	NotificationPaymentProcessed   NotificationType = "payment_processed"
)

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}
