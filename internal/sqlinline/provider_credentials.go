package sqlinline

const QSelectProviderCredential = `--sql 836ed3e0-168e-43d3-beb0-fd3a85a2e8a4
select token
from provider_credentials
where provider = $1::text
limit 1;
`

const QUpsertProviderCredential = `--sql a7f4cbac-fd85-42d4-b05c-2929555e985b
insert into provider_credentials (provider, token, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
