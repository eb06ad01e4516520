package sqlinline

// QOpenCreditAccount creates the account with its signup grant on first use
// and is a no-op afterwards.
const QOpenCreditAccount = `--sql 43f32028-4a18-4bfc-a480-234d869f9184
with opened as (
    insert into credit_accounts (owner_id, balance, created_at, updated_at)
    values ($1::text, $2::int, now(), now())
    on conflict (owner_id) do nothing
    returning owner_id, balance
)
insert into credit_ledger_entries (owner_id, delta, reason, balance_after, created_at)
select owner_id, balance, 'signup', balance, now()
from opened
where balance > 0;
`

const QSelectBalance = `--sql ec69c8db-8072-459d-be7f-771e888a8266
select balance
from credit_accounts
where owner_id = $1::text;
`

// QDebitCredits returns no row when the balance is short, which is how the
// caller detects a refused debit.
const QDebitCredits = `--sql 62c0718a-ba49-4d7e-be28-3fd3f35cc901
with debited as (
    update credit_accounts
    set balance = balance - $2::int, updated_at = now()
    where owner_id = $1::text
      and balance >= $2::int
    returning owner_id, balance
)
insert into credit_ledger_entries (owner_id, delta, reason, balance_after, created_at)
select owner_id, -$2::int, $3::text, balance, now()
from debited
returning balance_after;
`

const QCreditCredits = `--sql a419bb34-f404-4552-b1bd-cd2e7e7c782b
with credited as (
    update credit_accounts
    set balance = balance + $2::int, updated_at = now()
    where owner_id = $1::text
    returning owner_id, balance
)
insert into credit_ledger_entries (owner_id, delta, reason, balance_after, created_at)
select owner_id, $2::int, $3::text, balance, now()
from credited
returning balance_after;
`

// QRefundCredits claims refund_key and credits the account in one statement.
// No returned row means the key was already refunded.
const QRefundCredits = `--sql a223c458-ce93-4cba-a694-691d8c2ebe89
with claimed as (
    insert into credit_refunds (refund_key, owner_id, amount, created_at)
    values ($3::text, $1::text, $2::int, now())
    on conflict (refund_key) do nothing
    returning owner_id
), credited as (
    update credit_accounts
    set balance = balance + $2::int, updated_at = now()
    where owner_id in (select owner_id from claimed)
    returning owner_id, balance
)
insert into credit_ledger_entries (owner_id, delta, reason, balance_after, created_at)
select owner_id, $2::int, 'refund', balance, now()
from credited
returning balance_after;
`

const QListLedgerEntries = `--sql 5145b42e-4a1f-423f-89b0-50df3326f51f
select owner_id, delta, reason, balance_after, created_at
from credit_ledger_entries
where owner_id = $1::text
order by id desc
limit $2::int;
`
